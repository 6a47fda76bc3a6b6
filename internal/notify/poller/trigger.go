package poller

import (
	"fmt"
	"net/http"
)

// TriggerHandler exposes an on-demand poll next to the metrics endpoint.
// Only POST triggers; other methods get 405 with the Allow header set.
func TriggerHandler(poll func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		poll()
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	})
}
