package objectclient

import (
	"fmt"
	"path"
	"strings"
)

// ObjectKey builds the storage key for an upload:
// <scope>/<owner>/<id>/<file name>.
func ObjectKey(scope, owner, id, filename string) string {
	filename = path.Base(strings.ReplaceAll(filename, "\\", "/"))
	filename = strings.ReplaceAll(strings.TrimSpace(filename), " ", "_")
	if filename == "" || filename == "." || filename == "/" {
		filename = "upload"
	}
	owner = strings.ReplaceAll(owner, "/", "_")
	return path.Join(scope, owner, id, filename)
}

// ObjectURL returns the public URL of key. Without an endpoint it is the
// virtual-hosted AWS form.
func ObjectURL(endpoint, bucket, region, key string) string {
	if endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", endpoint, bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// KeyFromURL extracts the key from either URL form. Unknown URLs yield "".
func KeyFromURL(endpoint, bucket, u string) string {
	if endpoint != "" {
		prefix := endpoint + "/" + bucket + "/"
		if strings.HasPrefix(u, prefix) {
			return strings.TrimPrefix(u, prefix)
		}
		return ""
	}
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	if len(hostPath) != 2 || !strings.HasPrefix(hostPath[0], bucket+".") {
		return ""
	}
	return hostPath[1]
}
