package poller

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriggerHandlerPollsOnPost(t *testing.T) {
	polls := 0
	handler := TriggerHandler(func() { polls++ })

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/poll", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, 1, polls)
}

func TestTriggerHandlerRejectsOtherMethods(t *testing.T) {
	polls := 0
	handler := TriggerHandler(func() { polls++ })

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/poll", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	}
	assert.Zero(t, polls)
}
