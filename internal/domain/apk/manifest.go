package apk

import (
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
)

const (
	// DefaultMinSDK is the lowest platform version the package declares support for.
	DefaultMinSDK = 16
	// DefaultTargetSDK is the platform version the package is built against.
	DefaultTargetSDK = 28

	// PermissionInternet is granted to every generated application.
	PermissionInternet = "android.permission.INTERNET"

	// MainActivity is the simple class name of the entry point.
	MainActivity = "MainActivity"
)

// Activity declares the entry point of the application.
type Activity struct {
	// Name is the class name relative to the package, e.g. ".MainActivity".
	Name string
	// Exported allows other applications (the launcher) to start the activity.
	Exported bool
	// Launcher adds the MAIN/LAUNCHER intent filter.
	Launcher bool
}

// ManifestDocument is the in-memory application descriptor.
type ManifestDocument struct {
	Package     string
	Label       string
	VersionCode int
	VersionName string
	MinSDK      int
	TargetSDK   int
	Permissions []string
	Activity    Activity
}

// NewManifest returns the descriptor used for every generated package.
func NewManifest(spec *PackageSpec, minSDK, targetSDK int) *ManifestDocument {
	return &ManifestDocument{
		Package:     spec.PackageID,
		Label:       spec.AppName,
		VersionCode: 1,
		VersionName: "1.0",
		MinSDK:      minSDK,
		TargetSDK:   targetSDK,
		Permissions: []string{PermissionInternet},
		Activity: Activity{
			Name:     "." + MainActivity,
			Exported: true,
			Launcher: true,
		},
	}
}

//nolint:gochecknoglobals // Parsed once, immutable afterwards.
var (
	manifestTemplate = template.Must(template.New("manifest").Funcs(template.FuncMap{
		"xml": escapeXML,
	}).Parse(`<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android"
    package="{{ xml .Package }}"
    android:versionCode="{{ .VersionCode }}"
    android:versionName="{{ xml .VersionName }}">

    <uses-sdk
        android:minSdkVersion="{{ .MinSDK }}"
        android:targetSdkVersion="{{ .TargetSDK }}" />
{{ range .Permissions }}
    <uses-permission android:name="{{ xml . }}" />
{{- end }}

    <application
        android:label="{{ xml .Label }}"
        android:allowBackup="true">

        <activity
            android:name="{{ xml .Activity.Name }}"
            android:label="{{ xml .Label }}"
            android:exported="{{ .Activity.Exported }}">
{{- if .Activity.Launcher }}
            <intent-filter>
                <action android:name="android.intent.action.MAIN" />
                <category android:name="android.intent.category.LAUNCHER" />
            </intent-filter>
{{- end }}
        </activity>

    </application>
</manifest>
`))

	stringsTemplate = template.Must(template.New("strings").Funcs(template.FuncMap{
		"xml": escapeXML,
	}).Parse(`<?xml version="1.0" encoding="utf-8"?>
<resources>
    <string name="app_name">{{ xml . }}</string>
</resources>
`))
)

// Render produces the textual AndroidManifest.xml.
func (m *ManifestDocument) Render() (string, error) {
	var b strings.Builder
	if err := manifestTemplate.Execute(&b, m); err != nil {
		return "", fmt.Errorf("render manifest: %w", err)
	}

	return b.String(), nil
}

// RenderStrings produces res/values/strings.xml with the app_name entry.
func (m *ManifestDocument) RenderStrings() (string, error) {
	var b strings.Builder
	if err := stringsTemplate.Execute(&b, m.Label); err != nil {
		return "", fmt.Errorf("render strings: %w", err)
	}

	return b.String(), nil
}

func escapeXML(s string) string {
	var b strings.Builder

	// Writes to a strings.Builder never fail.
	_ = xml.EscapeText(&b, []byte(s))

	return b.String()
}
