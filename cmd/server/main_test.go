package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Shivanshdarji/Code-Chronicles-sub000/metrics"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestOriginFilter(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)
	r := CreateServer([]string{"http://localhost:3000", "https://chronicles.example.com"}, metrics.NewCollector().Handler())

	r.GET("/testroute", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "success")
	})

	tests := []struct {
		name           string
		path           string
		origin         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "health check is public",
			path:           "/health",
			expectedStatus: http.StatusOK,
			expectedBody:   "healthy",
		},
		{
			name:           "metrics are public",
			path:           "/metrics",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "allowed origin passes",
			path:           "/testroute",
			origin:         "https://chronicles.example.com",
			expectedStatus: http.StatusOK,
			expectedBody:   "success",
		},
		{
			name:           "disallowed origin is forbidden",
			path:           "/testroute",
			origin:         "http://evil.com",
			expectedStatus: http.StatusForbidden,
			expectedBody:   "forbidden origin",
		},
		{
			name:           "missing origin is forbidden",
			path:           "/testroute",
			expectedStatus: http.StatusForbidden,
			expectedBody:   "forbidden origin",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.origin != "" {
				req.Header.Add("Origin", tc.origin)
			}
			res := httptest.NewRecorder()

			r.ServeHTTP(res, req)

			assert.Equal(t, tc.expectedStatus, res.Code)
			if tc.expectedBody != "" {
				assert.Equal(t, tc.expectedBody, res.Body.String())
			}
		})
	}
}

func TestCORSHeaders(t *testing.T) {
	t.Parallel()
	gin.SetMode(gin.TestMode)

	allowedOrigins := []string{"http://localhost:3000"}

	tests := []struct {
		name        string
		method      string
		reqHeaders  map[string]string
		wantCode    int
		wantHeaders map[string]string
	}{
		{
			name:   "preflight from allowed origin",
			method: http.MethodOptions,
			reqHeaders: map[string]string{
				"Origin":                        "http://localhost:3000",
				"Access-Control-Request-Method": "GET",
			},
			wantCode: http.StatusNoContent,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin":      "http://localhost:3000",
				"Access-Control-Allow-Credentials": "true",
			},
		},
		{
			name:   "preflight from forbidden origin",
			method: http.MethodOptions,
			reqHeaders: map[string]string{
				"Origin":                        "http://evil.com",
				"Access-Control-Request-Method": "GET",
			},
			wantCode: http.StatusForbidden,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin": "",
			},
		},
		{
			name:   "GET from allowed origin",
			method: http.MethodGet,
			reqHeaders: map[string]string{
				"Origin": "http://localhost:3000",
			},
			wantCode: http.StatusOK,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin": "http://localhost:3000",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := CreateServer(allowedOrigins, nil)
			r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tc.method, "/test", nil)
			for k, v := range tc.reqHeaders {
				req.Header.Set(k, v)
			}
			res := httptest.NewRecorder()
			r.ServeHTTP(res, req)

			assert.Equal(t, tc.wantCode, res.Code)
			for k, v := range tc.wantHeaders {
				assert.Equal(t, v, res.Header().Get(k))
			}
		})
	}
}
