package middleware

import (
	"context"
	"net/http"

	"github.com/mssola/useragent"
)

// Device summarizes the caller's user agent for request logs.
type Device struct {
	Browser string
	OS      string
	Mobile  bool
}

type contextKeyDevice struct{}

var ContextKeyDevice = contextKeyDevice{}

// GetDevice retrieves parsed device info from the context, nil when absent.
func GetDevice(ctx context.Context) *Device {
	device, ok := ctx.Value(ContextKeyDevice).(*Device)
	if !ok {
		return nil
	}
	return device
}

// DeviceInfo parses the User-Agent header once per request so downstream
// logging does not repeat the work.
func DeviceInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawUA := r.Header.Get("User-Agent")
		if rawUA == "" {
			next.ServeHTTP(w, r)
			return
		}
		ua := useragent.New(rawUA)
		browser, _ := ua.Browser()
		device := &Device{
			Browser: browser,
			OS:      ua.OS(),
			Mobile:  ua.Mobile(),
		}
		ctx := context.WithValue(r.Context(), ContextKeyDevice, device)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
