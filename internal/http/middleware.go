package http

import (
	"context"
	"net/http"
)

type contextKey string

const deviceIDKey contextKey = "device_id"

// DeviceIDMiddleware requires the X-Device-ID header on every cart
// request. The cart is device-scoped; there are no user accounts.
func DeviceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := r.Header.Get("X-Device-ID")
		if deviceID == "" {
			respondError(w, http.StatusUnauthorized, "missing_device_id", "X-Device-ID header is required")
			return
		}

		ctx := context.WithValue(r.Context(), deviceIDKey, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getDeviceID(ctx context.Context) string {
	deviceID, _ := ctx.Value(deviceIDKey).(string)
	return deviceID
}
