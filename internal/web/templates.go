package web

import (
	"bytes"
	"html/template"
)

type templates struct {
	base  *template.Template
	game  *template.Template
	board *template.Template
	index *template.Template
}

func loadTemplates() *templates {
	base := template.Must(template.New("base").Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<title>HyperXO</title>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org@1.9.12/dist/ext/sse.js"></script>
<style>
.macro{display:grid;grid-template-columns:repeat(3,auto);gap:10px;width:max-content}
.sub{display:grid;grid-template-columns:repeat(3,2.2em);gap:2px;padding:4px;border:2px solid #ccc}
.sub.forced{border-color:#2a7}
.sub.won-X{background:#fde}.sub.won-O{background:#def}.sub.drawn{background:#eee}
.sub form{margin:0}.sub button{width:2.2em;height:2.2em}
</style>
</head><body>{{template "content" .}}</body></html>`))
	template.Must(base.New("board").Parse(boardTemplate))
	index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>HyperXO</h1>
<form action="/game" method="post">
  <label>Depth <select name="depth">{{range .Depths}}<option value="{{.}}"{{if eq . $.Default}} selected{{end}}>{{.}}</option>{{end}}</select></label>
  <button>New game</button>
</form>`))
	game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<h1>HyperXO</h1>
<div hx-ext="sse" sse-connect="/api/game/{{.ID}}/events">
  <div hx-get="/game/{{.ID}}/board" hx-trigger="sse:state" hx-target="#board" hx-swap="outerHTML">{{template "board" .}}</div>
</div>
<p><a href="/">New game</a></p>`))
	board := template.Must(template.New("board_only").Parse(boardTemplate))
	return &templates{base: base, game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
	var buf bytes.Buffer
	if name == "" {
		_ = t.Execute(&buf, data)
	} else {
		_ = t.ExecuteTemplate(&buf, name, data)
	}
	return buf.Bytes()
}

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <p class="status">{{.Status}}</p>
  <div class="macro">
  {{range .Boards}}
    <div class="sub{{if .Forced}} forced{{end}}{{if .Won}} won-{{.Won}}{{end}}{{if .Drawn}} drawn{{end}}" data-board="{{.Index}}">
    {{range .Cells}}
      {{if .Playable}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post" action="/game/{{$.ID}}/play">
        <input type="hidden" name="board" value="{{.Board}}">
        <input type="hidden" name="cell" value="{{.Cell}}">
        <button type="submit"></button>
      </form>
      {{else}}
      <button disabled>{{.Symbol}}</button>
      {{end}}
    {{end}}
    </div>
  {{end}}
  </div>
</div>
`
