// Package templates renders the HTML status page.
package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"
)

const StatePending = "PENDING"

// StatusView is what the status page shows for one output prefix.
type StatusView struct {
	Prefix  string
	State   string
	Message string
	Outputs []string
	// Token is appended to output links so downloads stay authenticated.
	Token string
}

func (v StatusView) Terminal() bool {
	return v.State == "COMPLETED" || v.State == "ERROR"
}

func (v StatusView) outputHref(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	href := "/outputs/" + strings.Join(segments, "/")
	if v.Token != "" {
		href += "?token=" + url.QueryEscape(v.Token)
	}
	return href
}

// StatusFragment is the part of the page replaced by live updates.
func StatusFragment(v StatusView) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<p class="state state-%s">%s</p>`,
			templ.EscapeString(strings.ToLower(v.State)), templ.EscapeString(v.State))
		if v.Message != "" {
			fmt.Fprintf(&b, `<pre class="message">%s</pre>`, templ.EscapeString(v.Message))
		}
		if len(v.Outputs) > 0 {
			b.WriteString(`<ul class="outputs">`)
			for _, key := range v.Outputs {
				fmt.Fprintf(&b, `<li><a href="%s">%s</a></li>`,
					templ.EscapeString(v.outputHref(key)), templ.EscapeString(key))
			}
			b.WriteString(`</ul>`)
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// StatusPage is the full document. It follows /events/ for the same prefix
// until the job reaches a terminal state.
func StatusPage(v StatusView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := templ.EscapeString(v.Prefix)
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title>`+
			`<style>body{font-family:sans-serif;margin:2rem}.state-error{color:#b00}.state-completed{color:#080}</style>`+
			`</head><body><h1>%s</h1><div id="status">`, title, title); err != nil {
			return err
		}
		if err := StatusFragment(v).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</div>`); err != nil {
			return err
		}
		if !v.Terminal() {
			if _, err := io.WriteString(w, liveScript); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

const liveScript = `<script>
(function () {
  var es = new EventSource(location.pathname.replace("/status/", "/events/") + location.search);
  es.addEventListener("status", function (e) {
    document.getElementById("status").innerHTML = e.data;
  });
  es.addEventListener("done", function () { es.close(); });
})();
</script>`
