package project

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"web2droid/internal/models"
	"web2droid/internal/site"
)

func TestSanitizeSegment(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"com.test.app", "comtestapp"},
		{"Com.Test-APP_9", "comtestapp9"},
		{"com.very.long.package.name.exceeding", "comverylongpackagena"},
		{"...", "app"},
	}
	for _, c := range cases {
		if got := SanitizeSegment(c.in); got != c.want {
			t.Fatalf("SanitizeSegment(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func baseSpec(opts models.BuildOptions) Spec {
	return Spec{
		URL:         "https://example.com",
		PackageName: "com.test.app",
		Metadata: site.Metadata{
			Title:       "Shop & Go",
			Description: "Buy things",
			ThemeColor:  "#112233",
		},
		Options: opts,
	}
}

func TestMaterializeWritesCompleteProject(t *testing.T) {
	dir := t.TempDir()
	if err := Materialize(dir, baseSpec(models.BuildOptions{})); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	wantFiles := []string{
		"settings.gradle",
		"build.gradle",
		"app/build.gradle",
		"app/src/main/AndroidManifest.xml",
		"app/src/main/java/com/web2droid/comtestapp/MainActivity.java",
		"app/src/main/res/layout/activity_main.xml",
		"app/src/main/res/values/strings.xml",
		"app/src/main/res/values/colors.xml",
	}
	for _, rel := range wantFiles {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			t.Fatalf("missing generated file %s: %v", rel, err)
		}
	}

	activity, _ := os.ReadFile(filepath.Join(dir, "app", "src", "main", "java", "com", "web2droid", "comtestapp", "MainActivity.java"))
	if !strings.Contains(string(activity), `loadUrl("https://example.com")`) {
		t.Fatalf("activity does not load target url")
	}
	if !strings.Contains(string(activity), "package com.web2droid.comtestapp;") {
		t.Fatalf("activity has wrong package")
	}

	strs, _ := os.ReadFile(filepath.Join(dir, "app", "src", "main", "res", "values", "strings.xml"))
	if !strings.Contains(string(strs), "Shop &amp; Go") {
		t.Fatalf("title not escaped: %s", strs)
	}
}

func TestMaterializeOptionToggles(t *testing.T) {
	dir := t.TempDir()
	opts := models.BuildOptions{PushNotifications: true, OfflineMode: true}
	if err := Materialize(dir, baseSpec(opts)); err != nil {
		t.Fatalf("materialize: %v", err)
	}

	manifest, _ := os.ReadFile(filepath.Join(dir, "app", "src", "main", "AndroidManifest.xml"))
	if !strings.Contains(string(manifest), "POST_NOTIFICATIONS") {
		t.Fatalf("push notifications permission missing")
	}
	if !strings.Contains(string(manifest), "ACCESS_NETWORK_STATE") {
		t.Fatalf("offline mode permission missing")
	}

	activity, _ := os.ReadFile(filepath.Join(dir, "app", "src", "main", "java", "com", "web2droid", "comtestapp", "MainActivity.java"))
	if !strings.Contains(string(activity), "LOAD_CACHE_ELSE_NETWORK") {
		t.Fatalf("offline cache mode not applied")
	}

	plain := t.TempDir()
	if err := Materialize(plain, baseSpec(models.BuildOptions{})); err != nil {
		t.Fatalf("materialize: %v", err)
	}
	defaultManifest, _ := os.ReadFile(filepath.Join(plain, "app", "src", "main", "AndroidManifest.xml"))
	if strings.Contains(string(defaultManifest), "POST_NOTIFICATIONS") {
		t.Fatalf("permission leaked into default manifest")
	}
}

func TestGenerateIconsRendersEveryDensity(t *testing.T) {
	dir := t.TempDir()
	src := imaging.New(300, 200, parseHexColor("#ff0000"))
	if err := GenerateIcons(dir, src); err != nil {
		t.Fatalf("generate icons: %v", err)
	}

	for bucket, size := range iconSizes {
		path := filepath.Join(dir, "app", "src", "main", "res", bucket, "ic_launcher.png")
		f, err := os.Open(path)
		if err != nil {
			t.Fatalf("icon missing for %s: %v", bucket, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			t.Fatalf("decode %s: %v", bucket, err)
		}
		if img.Bounds().Dx() != size || img.Bounds().Dy() != size {
			t.Fatalf("%s icon is %dx%d, want %dx%d", bucket, img.Bounds().Dx(), img.Bounds().Dy(), size, size)
		}
	}
}

func TestPlaceholderIconUsesThemeColor(t *testing.T) {
	img := PlaceholderIcon("#336699")
	r, g, b, _ := img.At(10, 10).RGBA()
	if r>>8 != 0x33 || g>>8 != 0x66 || b>>8 != 0x99 {
		t.Fatalf("unexpected placeholder color: %x %x %x", r>>8, g>>8, b>>8)
	}

	fallback := PlaceholderIcon("not-a-color")
	r, g, b, _ = fallback.At(0, 0).RGBA()
	if r>>8 != 0xff || g>>8 != 0xff || b>>8 != 0xff {
		t.Fatalf("bad color should fall back to white")
	}
}
