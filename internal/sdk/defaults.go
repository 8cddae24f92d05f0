package sdk

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// SDK root variables, in the order they are consulted.
const (
	EnvAndroidHome    = "ANDROID_HOME"
	EnvAndroidSDKRoot = "ANDROID_SDK_ROOT"
)

// ApktoolJar is the file name of the repackaging tool.
const ApktoolJar = "apktool.jar"

// PlatformProviders returns the standard search order for android.jar.
func PlatformProviders(lookupEnv func(string) (string, bool)) []Provider {
	return []Provider{
		Static(
			filepath.Join(SystemSDKRoot, "platforms", "android-23", PlatformJar),
			filepath.Join(SystemSDKRoot, "platforms", "android-28", PlatformJar),
			filepath.Join(SystemSDKRoot, "platforms", "android-30", PlatformJar),
			"/usr/share/java/com.android.android-23.jar",
			"/usr/share/java/com.android.android-28.jar",
			"/usr/share/java/com.android.android-30.jar",
		),
		PlatformScan(filepath.Join(SystemSDKRoot, "platforms")),
		EnvSDKRoot(lookupEnv, EnvAndroidHome, EnvAndroidSDKRoot),
		HomeDefaults(),
	}
}

// HomeDefaults yields per-user and /opt SDK installations.
func HomeDefaults() Provider {
	return func(afero.Fs) []string {
		var paths []string

		if home, err := homedir.Dir(); err == nil {
			paths = append(paths,
				filepath.Join(home, "Android", "Sdk", "platforms", "android-28", PlatformJar),
				filepath.Join(home, "Android", "Sdk", "platforms", "android-30", PlatformJar),
			)
		}

		return append(paths,
			"/opt/android-sdk/platforms/android-28/"+PlatformJar,
			"/opt/android-sdk/platforms/android-30/"+PlatformJar,
		)
	}
}

// NewPlatformLocator searches the real filesystem for android.jar.
func NewPlatformLocator() *Locator {
	return NewLocator(afero.NewOsFs(), PlatformProviders(os.LookupEnv)...)
}

// ApktoolProviders returns the search order for apktool.jar: configured paths
// first, then tools/ next to the executable, then tools/ in the working directory.
func ApktoolProviders(configured []string) []Provider {
	providers := []Provider{Static(configured...)}

	if exe, err := os.Executable(); err == nil {
		providers = append(providers, Static(filepath.Join(filepath.Dir(exe), "tools", ApktoolJar)))
	}

	if wd, err := os.Getwd(); err == nil {
		providers = append(providers, Static(filepath.Join(wd, "tools", ApktoolJar)))
	}

	return providers
}

// NewApktoolLocator searches the real filesystem for apktool.jar.
func NewApktoolLocator(configured []string) *Locator {
	return NewLocator(afero.NewOsFs(), ApktoolProviders(configured)...)
}
