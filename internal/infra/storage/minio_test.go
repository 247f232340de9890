package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Put(t *testing.T) {
	var gotPath, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	cli, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	s := &Store{client: cli, bucketName: "assessments", region: "us-east-1"}

	link, err := s.Put(context.Background(), "assessments/R-001/s1.md", []byte("# matrix"), "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, "/assessments/assessments/R-001/s1.md", gotPath)
	assert.Equal(t, "text/markdown", gotType)
	assert.Contains(t, string(gotBody), "# matrix")
	assert.Equal(t, "http://"+u.Host+"/assessments/assessments/R-001/s1.md", link)
}
