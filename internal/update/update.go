// Package update implements the self-update subcommand: check
// the latest GitHub release, compare versions, and swap the
// running binary for a checksum-verified download.
package update

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	releaseAPIURL = "https://api.github.com/repos/daylog/daylog/releases/latest"
	binaryName    = "daylog"
	cacheFileName = "update_check.json"
	cacheDuration = 1 * time.Hour
)

// Release is the subset of the GitHub release payload we use.
type Release struct {
	TagName string  `json:"tag_name"`
	Body    string  `json:"body"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Info describes an available update.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	DownloadURL    string
	AssetName      string
	Size           int64
	Checksum       string
}

type cachedCheck struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
}

// Check returns update info when a newer release exists, nil
// when already current. A cached negative result short-circuits
// the GitHub call for an hour unless force is set.
func Check(currentVersion string, force bool, cacheDir string) (*Info, error) {
	current := normalize(currentVersion)

	if !force {
		if cached := loadCache(cacheDir); cached != nil &&
			time.Since(cached.CheckedAt) < cacheDuration &&
			!isNewer(cached.Version, current) {
			return nil, nil
		}
	}

	release, err := fetchLatestRelease()
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}
	saveCache(release.TagName, cacheDir)

	if !isNewer(release.TagName, current) {
		return nil, nil
	}

	ext := ".tar.gz"
	if runtime.GOOS == "windows" {
		ext = ".zip"
	}
	assetName := fmt.Sprintf("%s_%s_%s_%s%s", binaryName,
		strings.TrimPrefix(release.TagName, "v"),
		runtime.GOOS, runtime.GOARCH, ext)

	var asset, sums *Asset
	for i := range release.Assets {
		switch release.Assets[i].Name {
		case assetName:
			asset = &release.Assets[i]
		case "SHA256SUMS", "checksums.txt":
			sums = &release.Assets[i]
		}
	}
	if asset == nil {
		return nil, fmt.Errorf("no release asset for %s/%s",
			runtime.GOOS, runtime.GOARCH)
	}

	checksum := ""
	if sums != nil {
		checksum, _ = fetchChecksum(sums.BrowserDownloadURL, assetName)
	}
	if checksum == "" {
		checksum = extractChecksum(release.Body, assetName)
	}

	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  release.TagName,
		DownloadURL:    asset.BrowserDownloadURL,
		AssetName:      asset.Name,
		Size:           asset.Size,
		Checksum:       checksum,
	}, nil
}

// Apply downloads the release archive, verifies its checksum,
// and replaces the running binary.
func Apply(info *Info, progressFn func(downloaded, total int64)) error {
	if info.Checksum == "" {
		return fmt.Errorf("no checksum for %s, refusing unverified binary",
			info.AssetName)
	}

	tempDir, err := os.MkdirTemp("", "daylog-update-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	archivePath := filepath.Join(tempDir, info.AssetName)
	gotChecksum, err := downloadFile(
		info.DownloadURL, archivePath, info.Size, progressFn)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	if !strings.EqualFold(gotChecksum, info.Checksum) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s",
			info.Checksum, gotChecksum)
	}

	currentExe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find current executable: %w", err)
	}
	currentExe, err = filepath.EvalSymlinks(currentExe)
	if err != nil {
		return fmt.Errorf("resolve symlinks: %w", err)
	}

	name := binaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return installFromArchive(archivePath, name,
		filepath.Join(filepath.Dir(currentExe), name))
}

func installFromArchive(archivePath, name, dstPath string) error {
	extractDir, err := os.MkdirTemp("", "daylog-extract-*")
	if err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}
	defer os.RemoveAll(extractDir)

	if strings.HasSuffix(archivePath, ".zip") {
		err = extractZip(archivePath, extractDir)
	} else {
		err = extractTarGz(archivePath, extractDir)
	}
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	srcPath := filepath.Join(extractDir, name)
	if _, err := os.Stat(srcPath); os.IsNotExist(err) {
		return fmt.Errorf("binary %s not found in archive", name)
	}
	return swapBinary(srcPath, dstPath)
}

// swapBinary replaces dstPath with srcPath using a
// rename-then-copy pattern that also works on Windows.
func swapBinary(srcPath, dstPath string) error {
	backupPath := dstPath + ".old"
	os.Remove(backupPath)

	if _, err := os.Stat(dstPath); err == nil {
		if err := os.Rename(dstPath, backupPath); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}

	if err := copyFile(srcPath, dstPath); err != nil {
		if restoreErr := os.Rename(backupPath, dstPath); restoreErr != nil {
			return fmt.Errorf("install: %w (rollback also failed: %v)",
				err, restoreErr)
		}
		return fmt.Errorf("install: %w", err)
	}
	if err := os.Chmod(dstPath, 0o755); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	os.Remove(backupPath)
	return nil
}

func fetchLatestRelease() (*Release, error) {
	req, err := http.NewRequest("GET", releaseAPIURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "daylog-update")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %s", resp.Status)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	return &release, nil
}

func downloadFile(
	url, dest string, totalSize int64,
	progressFn func(downloaded, total int64),
) (string, error) {
	resp, err := http.Get(url) //nolint:gosec
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", err
	}
	defer out.Close()

	hasher := sha256.New()
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := io.MultiWriter(out, hasher).Write(buf[:n]); err != nil {
				return "", err
			}
			downloaded += int64(n)
			if progressFn != nil {
				progressFn(downloaded, totalSize)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func extractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := sanitizePath(destDir, header.Name)
		if err != nil {
			return fmt.Errorf("invalid tar entry %q: %w", header.Name, err)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}
}

func extractZip(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := sanitizePath(destDir, f.Name)
		if err != nil {
			return fmt.Errorf("invalid zip entry %q: %w", f.Name, err)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeEntry(target, rc, f.Mode())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func writeEntry(target string, src io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode.Perm())
}

// sanitizePath validates an archive entry path to prevent
// directory traversal.
func sanitizePath(destDir, name string) (string, error) {
	cleanName := filepath.Clean(name)
	if filepath.IsAbs(cleanName) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("absolute path not allowed")
	}
	if cleanName == ".." ||
		strings.HasPrefix(cleanName, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed")
	}
	return filepath.Join(destDir, cleanName), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

func fetchChecksum(url, assetName string) (string, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url) //nolint:gosec
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch checksums: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return extractChecksum(string(body), assetName), nil
}

var checksumPattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

// extractChecksum scans SHA256SUMS-style text ("<hash>  <file>")
// for the named asset.
func extractChecksum(body, assetName string) string {
	for _, line := range strings.Split(body, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		if strings.TrimPrefix(fields[1], "*") != assetName {
			continue
		}
		if checksumPattern.MatchString(fields[0]) {
			return strings.ToLower(fields[0])
		}
	}
	return ""
}

func loadCache(cacheDir string) *cachedCheck {
	data, err := os.ReadFile(filepath.Join(cacheDir, cacheFileName))
	if err != nil {
		return nil
	}
	var cached cachedCheck
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil
	}
	return &cached
}

func saveCache(version, cacheDir string) {
	data, err := json.Marshal(cachedCheck{
		CheckedAt: time.Now(), Version: version,
	})
	if err != nil {
		return
	}
	_ = os.MkdirAll(cacheDir, 0o755)
	_ = os.WriteFile(filepath.Join(cacheDir, cacheFileName), data, 0o600)
}

// normalize coerces a version string into the "vX.Y.Z" form
// golang.org/x/mod/semver expects.
func normalize(v string) string {
	return "v" + strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewer reports whether a is a newer release than b. Invalid
// versions (dev builds, "unknown") never compare as newer.
func isNewer(a, b string) bool {
	av, bv := normalize(a), normalize(b)
	if !semver.IsValid(av) || !semver.IsValid(bv) {
		return false
	}
	return semver.Compare(av, bv) > 0
}

// FormatSize formats bytes as a human-readable string.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
