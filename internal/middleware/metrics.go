package middleware

import (
	"net/http"
	"time"

	"github.com/vetintel/aigateway/internal/metrics"
)

func Metrics(collector *metrics.Collector) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriterInterceptor{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			collector.Record(time.Since(start), rw.statusCode)
		})
	}
}
