package bytecode

import (
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/apk-packager/internal/domain/apk"
)

const greetingSuffix = "\n\nThis is a demonstration APK."

// sourceData feeds the Java and smali templates.
type sourceData struct {
	Package   string
	ClassPath string
	Class     string
	Greeting  string
}

func newSourceData(spec *apk.PackageSpec) *sourceData {
	return &sourceData{
		Package:   spec.PackageID,
		ClassPath: spec.ClassPath(),
		Class:     apk.MainActivity,
		Greeting:  spec.AppName + greetingSuffix,
	}
}

//nolint:gochecknoglobals // Parsed once, immutable afterwards.
var (
	javaTemplate = template.Must(template.New("java").Funcs(template.FuncMap{
		"literal": quoteLiteral,
	}).Parse(`package {{ .Package }};

import android.app.Activity;
import android.graphics.Color;
import android.os.Bundle;
import android.view.Gravity;
import android.widget.TextView;

public class {{ .Class }} extends Activity {
    @Override
    protected void onCreate(Bundle savedInstanceState) {
        super.onCreate(savedInstanceState);

        TextView textView = new TextView(this);
        textView.setText("{{ literal .Greeting }}");
        textView.setTextSize(20);
        textView.setGravity(Gravity.CENTER);
        textView.setTextColor(Color.BLACK);
        textView.setBackgroundColor(Color.WHITE);
        textView.setPadding(50, 50, 50, 50);

        setContentView(textView);
    }
}
`))

	smaliTemplate = template.Must(template.New("smali").Funcs(template.FuncMap{
		"literal": quoteLiteral,
	}).Parse(`.class public L{{ .ClassPath }}/{{ .Class }};
.super Landroid/app/Activity;
.source "{{ .Class }}.java"

.method public constructor <init>()V
    .registers 1

    invoke-direct {p0}, Landroid/app/Activity;-><init>()V

    return-void
.end method

.method protected onCreate(Landroid/os/Bundle;)V
    .registers 4
    .param p1, "savedInstanceState"    # Landroid/os/Bundle;

    invoke-super {p0, p1}, Landroid/app/Activity;->onCreate(Landroid/os/Bundle;)V

    new-instance v0, Landroid/widget/TextView;
    invoke-direct {v0, p0}, Landroid/widget/TextView;-><init>(Landroid/content/Context;)V

    const-string v1, "{{ literal .Greeting }}"
    invoke-virtual {v0, v1}, Landroid/widget/TextView;->setText(Ljava/lang/CharSequence;)V

    # 20.0f
    const/high16 v1, 0x41a00000
    invoke-virtual {v0, v1}, Landroid/widget/TextView;->setTextSize(F)V

    # Gravity.CENTER
    const/16 v1, 0x11
    invoke-virtual {v0, v1}, Landroid/widget/TextView;->setGravity(I)V

    # Color.BLACK
    const v1, -0x1000000
    invoke-virtual {v0, v1}, Landroid/widget/TextView;->setTextColor(I)V

    # Color.WHITE
    const/4 v1, -0x1
    invoke-virtual {v0, v1}, Landroid/widget/TextView;->setBackgroundColor(I)V

    const/16 v1, 0x32
    invoke-virtual {v0, v1, v1, v1, v1}, Landroid/widget/TextView;->setPadding(IIII)V

    invoke-virtual {p0, v0}, L{{ .ClassPath }}/{{ .Class }};->setContentView(Landroid/view/View;)V

    return-void
.end method
`))
)

// renderJava produces MainActivity.java.
func renderJava(data *sourceData) (string, error) {
	return render(javaTemplate, data)
}

// renderSmali produces MainActivity.smali.
func renderSmali(data *sourceData) (string, error) {
	return render(smaliTemplate, data)
}

func render(tmpl *template.Template, data *sourceData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s source: %w", tmpl.Name(), err)
	}

	return b.String(), nil
}

// quoteLiteral escapes s for a double-quoted Java or smali string literal.
func quoteLiteral(s string) string {
	return strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	).Replace(s)
}

// apktoolDescriptor is the apktool.yml build descriptor of a decoded project.
type apktoolDescriptor struct {
	Version        string `yaml:"version"`
	ApkFileName    string `yaml:"apkFileName"`
	IsFrameworkApk bool   `yaml:"isFrameworkApk"`
	UsesFramework  struct {
		IDs []int `yaml:"ids"`
	} `yaml:"usesFramework"`
	SdkInfo struct {
		MinSdkVersion    string `yaml:"minSdkVersion"`
		TargetSdkVersion string `yaml:"targetSdkVersion"`
	} `yaml:"sdkInfo"`
	PackageInfo struct {
		RenameManifestPackage *string `yaml:"renameManifestPackage"`
		// 127 (0x7f) is the application resource package id.
		ForcedPackageID string `yaml:"forcedPackageId"`
	} `yaml:"packageInfo"`
	VersionInfo struct {
		VersionCode string `yaml:"versionCode"`
		VersionName string `yaml:"versionName"`
	} `yaml:"versionInfo"`
	CompressionType bool `yaml:"compressionType"`
	SharedLibrary   bool `yaml:"sharedLibrary"`
	SparseResources bool `yaml:"sparseResources"`
}

// renderApktoolDescriptor produces apktool.yml for the manifest.
func renderApktoolDescriptor(m *apk.ManifestDocument) ([]byte, error) {
	var d apktoolDescriptor

	d.Version = "2.2.4"
	d.ApkFileName = "temp.apk"
	d.UsesFramework.IDs = []int{1}
	d.SdkInfo.MinSdkVersion = fmt.Sprint(m.MinSDK)
	d.SdkInfo.TargetSdkVersion = fmt.Sprint(m.TargetSDK)
	d.PackageInfo.ForcedPackageID = "127"
	d.VersionInfo.VersionCode = fmt.Sprint(m.VersionCode)
	d.VersionInfo.VersionName = m.VersionName

	data, err := yaml.Marshal(&d)
	if err != nil {
		return nil, fmt.Errorf("marshal apktool.yml: %w", err)
	}

	return data, nil
}
