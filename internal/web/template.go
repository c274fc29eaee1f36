package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/shot-stopper/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"grams": func(v float64) string {
		return fmt.Sprintf("%.1fg", v)
	},
	"secs": func(d time.Duration) string {
		return fmt.Sprintf("%.1fs", d.Seconds())
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Shot Stopper</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.connecting { color: orange; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Shot Stopper</h1>

<h2>Brew</h2>
<table>
<tr><th>Brewing</th><td class="{{if .Brewing}}on{{else}}off{{end}}">{{if .Brewing}}YES{{else}}no{{end}}</td></tr>
<tr><th>Weight</th><td>{{grams .Weight}}</td></tr>
<tr><th>Goal</th><td>{{grams .GoalWeight}} (offset {{grams .Offset}})</td></tr>
<tr><th>Shot timer</th><td>{{secs .Elapsed}}</td></tr>
<tr><th>Expected end</th><td>{{secs .Expected}}</td></tr>
<tr><th>Mode</th><td>{{if .TimeOnly}}time{{else}}weight{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Scale</th><td class="{{if eq .Link "CONNECTED"}}connected{{else if eq .Link "CONNECTING"}}connecting{{else}}disconnected{{end}}">{{.Link}}</td></tr>
<tr><th>Scale ID</th><td>{{.Config.ScaleID}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Shots</h2>
<table>
<tr><th>By button</th><td>{{.Counts.Button}}</td></tr>
<tr><th>By weight</th><td>{{.Counts.Weight}}</td></tr>
<tr><th>By time</th><td>{{.Counts.Time}}</td></tr>
<tr><th>By disconnect</th><td>{{.Counts.Disconnect}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Status interval</th><td>{{.Config.StatusMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
<tr><th>Config</th><td>{{.Config.ConfigPath}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/parameters">parameters</a> · <a href="/download/config">config</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
