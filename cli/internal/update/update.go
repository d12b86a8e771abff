package update

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/quarry/cli/internal/ui"
)

// latestKnown is the most recent release this build knows about. Release
// tooling bumps it alongside version.Version.
const latestKnown = "0.1.0"

// CheckForUpdates compares the running version against the latest known
// release and prints upgrade instructions when a newer one exists.
func CheckForUpdates(currentVersion string) error {
	current, err := version.NewVersion(currentVersion)
	if err != nil {
		return fmt.Errorf("invalid version format: %w", err)
	}

	latest, err := version.NewVersion(latestKnown)
	if err != nil {
		return fmt.Errorf("invalid latest version format: %w", err)
	}

	if current.LessThan(latest) {
		ui.PrintWarning("A new version of quarry is available!")
		fmt.Printf("Current version: %s\n", current)
		fmt.Printf("Latest version:  %s\n", latest)
		fmt.Printf("\nDownload: %s\n", DownloadURL(latest.String()))
		fmt.Printf("Or update with: go install github.com/satishbabariya/quarry/cli@latest\n")
		return nil
	}

	ui.PrintSuccess("quarry %s is up to date", current)
	return nil
}

// DownloadURL returns the release download URL for the current platform.
func DownloadURL(version string) string {
	return fmt.Sprintf("https://github.com/satishbabariya/quarry/releases/download/v%s/quarry-%s-%s", version, runtime.GOOS, runtime.GOARCH)
}
