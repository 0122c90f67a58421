package guard

import (
	"net/http"
	"net/url"
)

// IntentParam is the query parameter that carries the intent across a redirect.
const IntentParam = "from"

// RetryAfterSeconds is sent with the waiting response.
const RetryAfterSeconds = "1"

// Middleware guards server-rendered pages with routes. Pages are rendered
// only when their guard permits it; redirects use 303 See Other and carry the
// intent in the "from" query parameter.
func Middleware(source Source, routes Routes) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			target := Target{
				Path:   r.URL.RequestURI(),
				Intent: r.URL.Query().Get(IntentParam),
			}

			d := routes.Evaluate(StateOf(source), target)
			switch d.Action {
			case Render:
				next(w, r)
			case Wait:
				w.Header().Set("Retry-After", RetryAfterSeconds)
				http.Error(w, "session loading", http.StatusServiceUnavailable)
			case Redirect:
				http.Redirect(w, r, redirectURL(d), http.StatusSeeOther)
			default:
				http.NotFound(w, r)
			}
		}
	}
}

func redirectURL(d Decision) string {
	if d.Intent == "" {
		return d.Location
	}
	return d.Location + "?" + url.Values{IntentParam: {d.Intent}}.Encode()
}

// ChainMiddleware wraps handler in mw, the first middleware outermost.
func ChainMiddleware(handler http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}
