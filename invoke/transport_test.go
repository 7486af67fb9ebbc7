package invoke

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportSend(t *testing.T) {
	ctx := context.Background()

	t.Run("completed exchange returns status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			io.WriteString(w, `[{"record_id":"1"}]`)
		}))
		defer srv.Close()

		tr := NewHTTPTransport()
		resp, err := tr.Send(ctx, srv.URL, testSpec(), time.Second)

		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status)
		assert.JSONEq(t, `[{"record_id":"1"}]`, string(resp.Body))
	})

	t.Run("error status is a valid result not a failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"error":"You do not have permissions to use the API"}`)
		}))
		defer srv.Close()

		tr := NewHTTPTransport()
		resp, err := tr.Send(ctx, srv.URL, testSpec(), time.Second)

		require.NoError(t, err)
		assert.Equal(t, 403, resp.Status)
		assert.Contains(t, string(resp.Body), "permissions")
	})

	t.Run("credentials travel in the body never the URL", func(t *testing.T) {
		var gotQuery, gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			io.WriteString(w, "[]")
		}))
		defer srv.Close()

		tr := NewHTTPTransport()
		_, err := tr.Send(ctx, srv.URL, testSpec(), time.Second)
		require.NoError(t, err)

		assert.Empty(t, gotQuery)
		assert.Contains(t, gotBody, "token=ABC123")
	})

	t.Run("field order and empty values survive encoding", func(t *testing.T) {
		var gotBody string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			io.WriteString(w, "{}")
		}))
		defer srv.Close()

		spec := NewRequestSpec().
			Set("token", "T").
			Set("content", "record").
			Set("consent_date", "").
			Set("overwriteBehavior", "overwrite")

		tr := NewHTTPTransport()
		_, err := tr.Send(ctx, srv.URL, spec, time.Second)
		require.NoError(t, err)

		assert.Equal(t, "token=T&content=record&consent_date=&overwriteBehavior=overwrite", gotBody)
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close() // nothing listening anymore

		tr := NewHTTPTransport()
		_, err := tr.Send(ctx, url, testSpec(), time.Second)

		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})

	t.Run("attempt timeout is transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			io.WriteString(w, "[]")
		}))
		defer srv.Close()

		tr := NewHTTPTransport()
		_, err := tr.Send(ctx, srv.URL, testSpec(), 30*time.Millisecond)

		require.Error(t, err)
		assert.True(t, IsTransient(err))
	})

	t.Run("caller cancellation is not transient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
			io.WriteString(w, "[]")
		}))
		defer srv.Close()

		cancelCtx, cancel := context.WithCancel(ctx)
		go func() {
			time.Sleep(30 * time.Millisecond)
			cancel()
		}()

		tr := NewHTTPTransport()
		_, err := tr.Send(cancelCtx, srv.URL, testSpec(), time.Second)

		require.Error(t, err)
		assert.False(t, IsTransient(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHTTPTransportValidation(t *testing.T) {
	ctx := context.Background()
	tr := NewHTTPTransport()

	t.Run("relative URL rejected", func(t *testing.T) {
		_, err := tr.Send(ctx, "/api/", testSpec(), time.Second)
		require.Error(t, err)
		assert.False(t, IsTransient(err))
	})

	t.Run("non-http scheme rejected", func(t *testing.T) {
		_, err := tr.Send(ctx, "ftp://redcap.test/api/", testSpec(), time.Second)
		require.Error(t, err)
	})

	t.Run("empty spec rejected", func(t *testing.T) {
		_, err := tr.Send(ctx, "https://redcap.test/api/", NewRequestSpec(), time.Second)
		require.Error(t, err)
	})

	t.Run("spec without token rejected", func(t *testing.T) {
		spec := NewRequestSpec().Set("content", "record")
		_, err := tr.Send(ctx, "https://redcap.test/api/", spec, time.Second)
		require.Error(t, err)
	})

	t.Run("spec without content selector rejected", func(t *testing.T) {
		spec := NewRequestSpec().Set("token", "T")
		_, err := tr.Send(ctx, "https://redcap.test/api/", spec, time.Second)
		require.Error(t, err)
	})

	t.Run("non-positive timeout rejected", func(t *testing.T) {
		_, err := tr.Send(ctx, "https://redcap.test/api/", testSpec(), 0)
		require.Error(t, err)
	})
}

func TestHTTPTransportSendFile(t *testing.T) {
	ctx := context.Background()

	t.Run("multipart carries fields and file part", func(t *testing.T) {
		var gotFields map[string]string
		var gotFile, gotName, gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			gotFields = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				gotFields[k] = v[0]
			}
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			defer f.Close()
			b, _ := io.ReadAll(f)
			gotFile = string(b)
			gotName = hdr.Filename
			gotType = hdr.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		spec := NewRequestSpec().
			Set("token", "T").
			Set("content", "file").
			Set("action", "import").
			Set("record", "17")

		tr := NewHTTPTransport()
		resp, err := tr.SendFile(ctx, srv.URL, spec, File{
			Field: "file",
			Name:  "consent.txt",
			Data:  []byte("signed consent"),
		}, time.Second)

		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status)
		assert.Empty(t, resp.Body)
		assert.Equal(t, "T", gotFields["token"])
		assert.Equal(t, "import", gotFields["action"])
		assert.Equal(t, "signed consent", gotFile)
		assert.Equal(t, "consent.txt", gotName)
		assert.True(t, strings.HasPrefix(gotType, "text/plain"))
	})

	t.Run("missing file field rejected", func(t *testing.T) {
		tr := NewHTTPTransport()
		_, err := tr.SendFile(ctx, "https://redcap.test/api/", testSpec(), File{}, time.Second)
		require.Error(t, err)
	})
}

func TestHTTPTransportRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	}))
	defer srv.Close()

	tr := NewHTTPTransport(WithRateLimit(1000))
	for i := 0; i < 3; i++ {
		_, err := tr.Send(context.Background(), srv.URL, testSpec(), time.Second)
		require.NoError(t, err)
	}
}
