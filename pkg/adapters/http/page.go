package http

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"

	"github.com/aretw0/lmrtfy/pkg/domain"
	"github.com/aretw0/lmrtfy/pkg/playback"
)

var pages = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>Let Me Replit That For You</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; padding: 0 1rem; }
.prompt { font-family: monospace; padding: 1rem; border: 1px solid #ccc; border-radius: .5rem; }
.steps { display: flex; gap: .5rem; list-style: none; padding: 0; }
.steps li { flex: 1; height: .5rem; background: #ddd; border-radius: .25rem; }
.steps li.done { background: #f26207; }
.chat { font-family: monospace; min-height: 3rem; padding: 1rem; border: 1px solid #ccc; }
</style>
</head>
<body>
<h1><a href="/">Let Me Replit That For You</a></h1>
{{end}}

{{define "home"}}{{template "head" .}}
<p>Generate a link to show someone how to use Replit's AI to solve their coding problem.</p>
<form id="create">
<textarea id="prompt" rows="4" cols="60" maxlength="{{.MaxPromptBytes}}" placeholder="e.g., How do I create a React component with state?"></textarea>
<p><button type="submit">Generate Link</button></p>
</form>
<p><a id="link" href="#"></a></p>
<script>
document.getElementById("create").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const res = await fetch("/api/links", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({prompt: document.getElementById("prompt").value}),
  });
  const body = await res.json();
  const link = document.getElementById("link");
  link.textContent = res.ok ? body.url : body.message;
  link.href = res.ok ? body.url : "#";
});
</script>
</body>
</html>
{{end}}

{{define "invalid"}}{{template "head" .}}
<h2>Invalid Let Me Replit That For You Link</h2>
<p>This link appears to be missing a prompt.</p>
<p><a href="/">Go Home</a></p>
</body>
</html>
{{end}}

{{define "link"}}{{template "head" .}}
<h2>Let Me Show You How</h2>
<p>Here's how you can ask Replit's AI Agent:</p>
<div class="prompt" id="prompt">"{{.Prompt}}"</div>
<ul class="steps">{{range .Steps}}<li></li>{{end}}</ul>
<p id="label">{{.FirstLabel}}</p>
<div class="chat" id="chat"></div>
<h2>Ask Replit's AI Agent Yourself</h2>
<p><a id="assistant" href="{{.AssistantURL}}" rel="noopener">Go to Replit AI</a> | <a href="/">Create Your Own</a></p>
<script>
const stream = new EventSource({{.StreamURL}});
const bars = document.querySelectorAll(".steps li");
stream.addEventListener("snapshot", (ev) => {
  const snap = JSON.parse(ev.data);
  bars.forEach((bar, i) => bar.classList.toggle("done", i <= snap.stepIndex));
  document.getElementById("label").textContent = snap.label;
  document.getElementById("chat").textContent = snap.revealedText;
});
stream.addEventListener("done", () => stream.close());
</script>
</body>
</html>
{{end}}
`))

type homeView struct {
	MaxPromptBytes int
}

type linkView struct {
	Prompt       string
	AssistantURL string
	StreamURL    string
	Steps        []playback.Step
	FirstLabel   string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to render page")
		s.logger.Error("page render failed", "page", name, "error", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// home handles GET /.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home", homeView{MaxPromptBytes: s.cfg.MaxPromptBytes})
}

// page handles GET /replit, the page a shared link opens.
func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	res, err := s.resolve(r)
	if err != nil {
		s.render(w, http.StatusBadRequest, "invalid", nil)
		return
	}
	s.record(r, domain.EventLinkVisited, res.Prompt)

	s.render(w, http.StatusOK, "link", linkView{
		Prompt:       res.Prompt,
		AssistantURL: res.AssistantURL,
		StreamURL:    "/api/playback/stream?q=" + url.QueryEscape(res.Token),
		Steps:        playback.Steps(),
		FirstLabel:   playback.StepNavigate.Label(),
	})
}
