package preflight

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"presence/internal/auth"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB
// gibibytes available for recorded artifacts.
func CheckFreeSpace(name, path string, minGiB int) Result {
	if minGiB <= 0 {
		return Result{Name: name, Passed: true, Detail: "no minimum configured"}
	}
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	available := stat.Bavail * uint64(stat.Bsize)
	required := uint64(minGiB) << 30
	if available < required {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB available, %d GiB required",
			float64(available)/(1<<30), minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB available", float64(available)/(1<<30))}
}

// CheckBinary verifies that command resolves on PATH.
func CheckBinary(name, command string) Result {
	path, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s not found on PATH", command)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckCaptureDevice verifies the video device node exists and is readable.
func CheckCaptureDevice(path string) Result {
	const name = "Capture device"
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "no video device configured"}
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckBackend verifies the assessment backend answers HTTP at its base URL.
// Any HTTP response counts as reachable; auth problems surface per request.
func CheckBackend(ctx context.Context, baseURL string) Result {
	const name = "Assessment backend"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing base url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("reachability check failed (%v)", err)}
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	return Result{Name: name, Passed: true, Detail: "reachable"}
}

// CheckCredentials verifies a session token is available.
func CheckCredentials(ctx context.Context, creds auth.CredentialProvider) Result {
	const name = "Session token"
	if creds == nil {
		return Result{Name: name, Detail: "no credential provider configured"}
	}
	token, err := creds.SessionToken(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNoSession) {
			return Result{Name: name, Detail: "not logged in (run 'presence auth login')"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("token check failed (%v)", err)}
	}
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "empty session token"}
	}
	return Result{Name: name, Passed: true, Detail: "present"}
}
