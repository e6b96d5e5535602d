package artifact

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrNotFound reports that a finished build left no APK behind.
var ErrNotFound = errors.New("apk not found after build")

// Gradle's output tree contract. Release is preferred; a minimal generated
// project may fail release signing while the debug variant still builds,
// so the resolver degrades to the debug APK before giving up.
var searchPaths = []string{
	filepath.Join("app", "build", "outputs", "apk", "release", "app-release.apk"),
	filepath.Join("app", "build", "outputs", "apk", "debug", "app-debug.apk"),
}

// Resolve locates the built APK under projectDir. Existence check only;
// content is not validated.
func Resolve(projectDir string) (string, error) {
	for _, rel := range searchPaths {
		path := filepath.Join(projectDir, rel)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", ErrNotFound
}
