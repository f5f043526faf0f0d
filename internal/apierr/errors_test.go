package apierr

import (
	"errors"
	"net/http"
	"testing"
)

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := errors.New("boom")
	err := UpstreamTransient(cause, "fetch failed")
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to find wrapped cause")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain error) = %s, want internal", got)
	}
}

func TestKindOfUnwrapsTypedError(t *testing.T) {
	err := Validation("bad field")
	if got := KindOf(err); got != KindValidation {
		t.Errorf("KindOf = %s, want validation", got)
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:        http.StatusBadRequest,
		KindAuth:               http.StatusUnauthorized,
		KindNotFound:           http.StatusNotFound,
		KindFeatureDisabled:    http.StatusServiceUnavailable,
		KindUpstreamTransient:  http.StatusBadGateway,
		KindUpstreamFatal:      http.StatusBadGateway,
		KindInternal:           http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := HTTPStatus(k); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", k, got, want)
		}
	}
}
