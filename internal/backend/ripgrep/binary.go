package ripgrep

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// BinaryManager handles detection and installation of the ripgrep binary.
type BinaryManager struct {
	customPath string
	cachePath  string
}

// NewBinaryManager creates a new binary manager.
// customPath: optional explicit path to the rg binary
// cachePath defaults to ~/.grepper/bin
func NewBinaryManager(customPath string) *BinaryManager {
	homeDir, _ := os.UserHomeDir()
	cachePath := filepath.Join(homeDir, ".grepper", "bin")

	return &BinaryManager{
		customPath: customPath,
		cachePath:  cachePath,
	}
}

// Find locates the rg binary using the following search order:
// 1. Custom path (if provided)
// 2. $PATH lookup
// 3. Cached binary in ~/.grepper/bin/rg
// Returns the path to the binary or an error if not found.
func (bm *BinaryManager) Find() (string, error) {
	if bm.customPath != "" {
		if _, err := os.Stat(bm.customPath); err == nil {
			return bm.customPath, nil
		}
		return "", fmt.Errorf("custom ripgrep path not found: %s", bm.customPath)
	}

	if path, err := exec.LookPath("rg"); err == nil {
		return path, nil
	}

	cachedPath := filepath.Join(bm.cachePath, "rg")
	if runtime.GOOS == "windows" {
		cachedPath += ".exe"
	}
	if _, err := os.Stat(cachedPath); err == nil {
		return cachedPath, nil
	}

	return "", fmt.Errorf("rg binary not found in PATH or cache (%s)", cachedPath)
}

// Version runs rg --version and parses the output.
// Returns the version string (e.g., "14.1.0") or an error.
func (bm *BinaryManager) Version(binaryPath string) (string, error) {
	cmd := exec.Command(binaryPath, "--version")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get ripgrep version: %w", err)
	}
	return parseVersion(string(output)), nil
}

// parseVersion extracts the bare version from rg --version output.
// Expected first line: "ripgrep 14.1.0" or "ripgrep 14.1.0 (rev ...)".
func parseVersion(output string) string {
	line := output
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "ripgrep ")
	if i := strings.IndexByte(line, ' '); i >= 0 {
		line = line[:i]
	}
	return strings.TrimPrefix(line, "v")
}

// Download downloads and installs the ripgrep binary from GitHub
// releases into the cache directory. version can be "latest" or a
// specific version like "14.1.0". Returns the installed path.
func (bm *BinaryManager) Download(version string) (string, error) {
	downloadVersion := strings.TrimPrefix(version, "v")
	if downloadVersion == "latest" || downloadVersion == "" {
		latest, err := getLatestVersion()
		if err != nil {
			return "", fmt.Errorf("failed to get latest ripgrep version: %w", err)
		}
		downloadVersion = strings.TrimPrefix(latest, "v")
	}

	target, err := ReleaseTarget()
	if err != nil {
		return "", err
	}

	// Release archives look like ripgrep-14.1.0-x86_64-unknown-linux-musl.tar.gz
	// with the binary at ripgrep-14.1.0-<target>/rg inside.
	var downloadURL string
	isZip := runtime.GOOS == "windows"
	if isZip {
		downloadURL = fmt.Sprintf("https://github.com/BurntSushi/ripgrep/releases/download/%s/ripgrep-%s-%s.zip",
			downloadVersion, downloadVersion, target)
	} else {
		downloadURL = fmt.Sprintf("https://github.com/BurntSushi/ripgrep/releases/download/%s/ripgrep-%s-%s.tar.gz",
			downloadVersion, downloadVersion, target)
	}

	if err := os.MkdirAll(bm.cachePath, 0755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	resp, err := http.Get(downloadURL)
	if err != nil {
		return "", fmt.Errorf("failed to download ripgrep: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download ripgrep: HTTP %d from %s", resp.StatusCode, downloadURL)
	}

	binaryName := "rg"
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	destPath := filepath.Join(bm.cachePath, binaryName)

	if isZip {
		if err := extractFromZip(resp.Body, binaryName, destPath); err != nil {
			return "", fmt.Errorf("failed to extract ripgrep: %w", err)
		}
	} else {
		if err := extractFromTarGz(resp.Body, binaryName, destPath); err != nil {
			return "", fmt.Errorf("failed to extract ripgrep: %w", err)
		}
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(destPath, 0755); err != nil {
			return "", fmt.Errorf("failed to make ripgrep executable: %w", err)
		}
	}

	return destPath, nil
}

// ReleaseTarget returns the Rust target triple used in ripgrep release
// archive names for the current platform.
func ReleaseTarget() (string, error) {
	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "linux/amd64":
		return "x86_64-unknown-linux-musl", nil
	case "linux/arm64":
		return "aarch64-unknown-linux-gnu", nil
	case "darwin/amd64":
		return "x86_64-apple-darwin", nil
	case "darwin/arm64":
		return "aarch64-apple-darwin", nil
	case "windows/amd64":
		return "x86_64-pc-windows-msvc", nil
	case "windows/386":
		return "i686-pc-windows-msvc", nil
	}
	return "", fmt.Errorf("no prebuilt ripgrep release for %s/%s; install it with your package manager", runtime.GOOS, runtime.GOARCH)
}

// getLatestVersion fetches the latest release version from the GitHub API.
func getLatestVersion() (string, error) {
	resp, err := http.Get("https://api.github.com/repos/BurntSushi/ripgrep/releases/latest")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	// Simple JSON parsing - look for "tag_name":"X.Y.Z"
	tagNamePrefix := `"tag_name":"`
	start := strings.Index(string(body), tagNamePrefix)
	if start == -1 {
		return "", fmt.Errorf("could not find tag_name in GitHub response")
	}
	start += len(tagNamePrefix)
	end := strings.Index(string(body[start:]), `"`)
	if end == -1 {
		return "", fmt.Errorf("malformed tag_name in GitHub response")
	}

	return string(body[start : start+end]), nil
}

// extractFromTarGz extracts a single file from a tar.gz archive.
func extractFromTarGz(r io.Reader, filename, destPath string) error {
	gzr, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		// The binary sits in a versioned subdirectory inside the archive.
		if header.Typeflag == tar.TypeReg && strings.HasSuffix(header.Name, "/"+filename) {
			outFile, err := os.Create(destPath)
			if err != nil {
				return err
			}
			defer outFile.Close()

			if _, err := io.Copy(outFile, tr); err != nil {
				return err
			}
			return nil
		}
	}

	return fmt.Errorf("file %s not found in archive", filename)
}

// extractFromZip extracts a single file from a zip archive.
func extractFromZip(r io.Reader, filename, destPath string) error {
	// Read entire archive into memory (zip requires ReaderAt)
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(&bytesReaderAt{data}, int64(len(data)))
	if err != nil {
		return err
	}

	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, filename) {
			rc, err := f.Open()
			if err != nil {
				return err
			}
			defer rc.Close()

			outFile, err := os.Create(destPath)
			if err != nil {
				return err
			}
			defer outFile.Close()

			if _, err := io.Copy(outFile, rc); err != nil {
				return err
			}
			return nil
		}
	}

	return fmt.Errorf("file %s not found in archive", filename)
}

// bytesReaderAt implements io.ReaderAt for a byte slice.
type bytesReaderAt struct {
	data []byte
}

func (b *bytesReaderAt) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n = copy(p, b.data[off:])
	if n < len(p) {
		err = io.EOF
	}
	return
}
