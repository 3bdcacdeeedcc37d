package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var (
	webhookMethods = []string{http.MethodPost, http.MethodOptions}
	webhookHeaders = []string{"Content-Type"}
)

// WebhookCORS answers cross-origin requests on the webhook paths with an
// allow-all policy.
//
// go-chi/cors validates browser preflights and adds Vary and Max-Age, then
// passes them through to preflightHandler. The library writes nothing when
// a request has no Origin header, and site plugins posting server-side
// often send none, so the fixed allow-all set is also written on every
// response here.
func WebhookCORS() func(http.Handler) http.Handler {
	library := cors.Handler(cors.Options{
		AllowedOrigins:     []string{"*"},
		AllowedMethods:     webhookMethods,
		AllowedHeaders:     webhookHeaders,
		MaxAge:             300,
		OptionsPassthrough: true,
	})

	return func(next http.Handler) http.Handler {
		inner := library(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setWebhookCORS(w.Header())
			inner.ServeHTTP(w, r)
		})
	}
}

// setWebhookCORS writes the allow-all header set.
func setWebhookCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", strings.Join(webhookMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(webhookHeaders, ", "))
}

// preflightHandler answers every OPTIONS request on a webhook path. A
// browser preflight arrives here after the CORS library narrowed
// Allow-Methods to the requested method, so the full set is restored.
func preflightHandler(w http.ResponseWriter, _ *http.Request) {
	setWebhookCORS(w.Header())
	w.WriteHeader(http.StatusOK)
}
