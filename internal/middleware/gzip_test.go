package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	if len(body) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("echo: " + string(body)))
}

func gzipped(t *testing.T, s string) io.Reader {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(s)); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
	return &buf
}

func TestGzipMiddleware(t *testing.T) {
	type want struct {
		statusCode      int
		contentEncoding string
		body            string
	}

	tests := []struct {
		name           string
		body           string
		compressedBody bool
		acceptEncoding string
		contentType    string
		want           want
	}{
		{
			name:           "json response compressed",
			body:           `{"title":"Iphone 4 1"}`,
			acceptEncoding: "gzip, deflate",
			contentType:    "application/json",
			want:           want{http.StatusOK, "gzip", `echo: {"title":"Iphone 4 1"}`},
		},
		{
			name:           "html response compressed",
			body:           "<p>listing</p>",
			acceptEncoding: "gzip",
			contentType:    "text/html; charset=utf-8",
			want:           want{http.StatusOK, "gzip", "echo: <p>listing</p>"},
		},
		{
			name:           "plain text left as is",
			body:           "Unauthorized",
			acceptEncoding: "gzip",
			contentType:    "text/plain",
			want:           want{http.StatusOK, "", "echo: Unauthorized"},
		},
		{
			name:        "client does not accept gzip",
			body:        `{"price":30}`,
			contentType: "application/json",
			want:        want{http.StatusOK, "", `echo: {"price":30}`},
		},
		{
			name:           "compressed request body",
			body:           `{"email":"user@test.com"}`,
			compressedBody: true,
			acceptEncoding: "gzip",
			contentType:    "application/json",
			want:           want{http.StatusOK, "gzip", `echo: {"email":"user@test.com"}`},
		},
		{
			name:           "no content",
			acceptEncoding: "gzip",
			want:           want{http.StatusNoContent, "", ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader = strings.NewReader(tt.body)
			if tt.compressedBody {
				body = gzipped(t, tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/orders", body)
			if tt.compressedBody {
				req.Header.Set("Content-Encoding", "gzip")
			}
			req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			w := httptest.NewRecorder()
			GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

			res := w.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.want.statusCode {
				t.Fatalf("status: got %d want %d", res.StatusCode, tt.want.statusCode)
			}
			if ce := res.Header.Get("Content-Encoding"); ce != tt.want.contentEncoding {
				t.Fatalf("content-encoding: got %q want %q", ce, tt.want.contentEncoding)
			}

			reader := io.Reader(res.Body)
			if tt.want.contentEncoding == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("new gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}

			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if string(got) != tt.want.body {
				t.Fatalf("body: got %q want %q", got, tt.want.body)
			}
		})
	}
}

func TestGzipMiddleware_MalformedRequestBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader("not gzip"))
	req.Header.Set("Content-Encoding", "gzip")

	w := httptest.NewRecorder()
	GzipMiddleware(http.HandlerFunc(echoHandler)).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d want %d", w.Code, http.StatusBadRequest)
	}
}
