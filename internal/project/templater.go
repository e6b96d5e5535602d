package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"web2droid/internal/models"
	"web2droid/internal/site"
)

// Spec carries everything the generated project depends on.
type Spec struct {
	URL         string
	PackageName string
	Metadata    site.Metadata
	Options     models.BuildOptions
}

// SanitizeSegment derives a Java-safe path segment from a package name:
// everything outside [A-Za-z0-9] is stripped, the rest lowercased and
// truncated to 20 characters. Deterministic; uniqueness is the caller's
// problem.
func SanitizeSegment(packageName string) string {
	var b strings.Builder
	for _, r := range packageName {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	seg := b.String()
	if len(seg) > 20 {
		seg = seg[:20]
	}
	if seg == "" {
		seg = "app"
	}
	return seg
}

// JavaPackage is the applicationId of the generated app.
func JavaPackage(packageName string) string {
	return "com.web2droid." + SanitizeSegment(packageName)
}

// Materialize writes the complete Android project skeleton under dir.
// Each file write is all-or-nothing; the first failure aborts and is
// returned with the offending path.
func Materialize(dir string, spec Spec) error {
	pkg := JavaPackage(spec.PackageName)
	javaDir := filepath.Join(append([]string{dir, "app", "src", "main", "java"}, strings.Split(pkg, ".")...)...)

	files := []struct {
		path    string
		content string
	}{
		{filepath.Join(dir, "settings.gradle"), settingsGradle()},
		{filepath.Join(dir, "build.gradle"), rootBuildGradle()},
		{filepath.Join(dir, "app", "build.gradle"), appBuildGradle(pkg)},
		{filepath.Join(dir, "app", "src", "main", "AndroidManifest.xml"), manifest(pkg, spec.Options)},
		{filepath.Join(javaDir, "MainActivity.java"), mainActivity(pkg, spec.URL, spec.Options)},
		{filepath.Join(dir, "app", "src", "main", "res", "layout", "activity_main.xml"), activityLayout()},
		{filepath.Join(dir, "app", "src", "main", "res", "values", "strings.xml"), stringsXML(spec.Metadata)},
		{filepath.Join(dir, "app", "src", "main", "res", "values", "colors.xml"), colorsXML(spec.Metadata.ThemeColor)},
	}

	for _, f := range files {
		if err := writeFile(f.path, f.content); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func settingsGradle() string {
	return "include ':app'\nrootProject.name = 'Web2DroidApp'\n"
}

func rootBuildGradle() string {
	return `buildscript {
    repositories {
        google()
        mavenCentral()
    }
    dependencies {
        classpath 'com.android.tools.build:gradle:8.1.0'
    }
}

allprojects {
    repositories {
        google()
        mavenCentral()
    }
}
`
}

func appBuildGradle(pkg string) string {
	return fmt.Sprintf(`apply plugin: 'com.android.application'

android {
    namespace '%s'
    compileSdk 34

    defaultConfig {
        applicationId '%s'
        minSdk 21
        targetSdk 34
        versionCode 1
        versionName '1.0'
    }

    buildTypes {
        release {
            minifyEnabled false
        }
    }
}

dependencies {
    implementation 'androidx.appcompat:appcompat:1.6.1'
    implementation 'androidx.core:core-ktx:1.12.0'
}
`, pkg, pkg)
}

func manifest(pkg string, opts models.BuildOptions) string {
	var extra strings.Builder
	if opts.OfflineMode {
		extra.WriteString("    <uses-permission android:name=\"android.permission.ACCESS_NETWORK_STATE\" />\n")
	}
	if opts.PushNotifications {
		extra.WriteString("    <uses-permission android:name=\"android.permission.POST_NOTIFICATIONS\" />\n")
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android"
    package="%s">

    <uses-permission android:name="android.permission.INTERNET" />
%s
    <application
        android:icon="@mipmap/ic_launcher"
        android:label="@string/app_name"
        android:usesCleartextTraffic="true"
        android:theme="@style/Theme.AppCompat.Light.NoActionBar">
        <activity
            android:name=".MainActivity"
            android:exported="true">
            <intent-filter>
                <action android:name="android.intent.action.MAIN" />
                <category android:name="android.intent.category.LAUNCHER" />
            </intent-filter>
        </activity>
    </application>
</manifest>
`, pkg, extra.String())
}

func mainActivity(pkg, url string, opts models.BuildOptions) string {
	cacheMode := "WebSettings.LOAD_DEFAULT"
	if opts.OfflineMode {
		cacheMode = "WebSettings.LOAD_CACHE_ELSE_NETWORK"
	}
	return fmt.Sprintf(`package %s;

import android.os.Bundle;
import android.webkit.WebSettings;
import android.webkit.WebView;
import android.webkit.WebViewClient;
import androidx.appcompat.app.AppCompatActivity;

public class MainActivity extends AppCompatActivity {
    private WebView webView;

    @Override
    protected void onCreate(Bundle savedInstanceState) {
        super.onCreate(savedInstanceState);
        setContentView(R.layout.activity_main);

        webView = findViewById(R.id.webview);
        WebSettings webSettings = webView.getSettings();
        webSettings.setJavaScriptEnabled(true);
        webSettings.setDomStorageEnabled(true);
        webSettings.setDatabaseEnabled(true);
        webSettings.setLoadWithOverviewMode(true);
        webSettings.setUseWideViewPort(true);
        webSettings.setCacheMode(%s);

        webView.setWebViewClient(new WebViewClient());
        webView.loadUrl("%s");
    }

    @Override
    public void onBackPressed() {
        if (webView.canGoBack()) {
            webView.goBack();
        } else {
            super.onBackPressed();
        }
    }
}
`, pkg, cacheMode, url)
}

func activityLayout() string {
	return `<?xml version="1.0" encoding="utf-8"?>
<WebView xmlns:android="http://schemas.android.com/apk/res/android"
    android:id="@+id/webview"
    android:layout_width="match_parent"
    android:layout_height="match_parent" />
`
}

func stringsXML(meta site.Metadata) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">%s</string>
    <string name="app_description">%s</string>
</resources>
`, xmlEscape(meta.Title), xmlEscape(meta.Description))
}

func colorsXML(themeColor string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<resources>
    <color name="theme_color">%s</color>
</resources>
`, xmlEscape(themeColor))
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}
