package e2e

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

const (
	adminUser     = "testuser@example.com"
	adminPassword = "testpass123"
)

var (
	appURL string
)

func TestMain(m *testing.M) {
	os.Exit(runTestMain(m))
}

func runTestMain(m *testing.M) int {
	workDir, err := os.MkdirTemp("", "finance-tracker-e2e")
	if err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(workDir)

	// Works from the e2e directory (go test ./e2e/...) and from the repo root.
	buildPath := filepath.Join(workDir, "finance-tracker")
	pkg := "../cmd/server"
	if _, err := os.Stat(pkg); os.IsNotExist(err) {
		if _, err := os.Stat("cmd/server"); err != nil {
			fmt.Println("Could not find cmd/server to build")
			return 1
		}
		pkg = "./cmd/server"
	}

	output, err := exec.Command("go", "build", "-o", buildPath, pkg).CombinedOutput()
	if err != nil {
		fmt.Printf("Failed to build app: %v\n%s\n", err, output)
		return 1
	}

	port := "8081"
	appURL = "http://localhost:" + port

	serverCmd := exec.Command(buildPath)
	serverCmd.Env = append(os.Environ(),
		"PORT="+port,
		"DATA_BACKEND=sqlite",
		"DB_PATH="+filepath.Join(workDir, "finance.db"),
		"AMQP_URL=",
		"ADMIN_USER="+adminUser,
		"ADMIN_PASSWORD="+adminPassword,
		"LOG_LEVEL=warn",
	)
	serverCmd.Stdout = os.Stdout
	serverCmd.Stderr = os.Stderr

	if err := serverCmd.Start(); err != nil {
		fmt.Printf("Failed to start server: %v\n", err)
		return 1
	}

	ready := false
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		resp, err := http.Get(appURL + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				ready = true
				break
			}
		}
	}

	if !ready {
		fmt.Println("Server failed to start or is not reachable")
		serverCmd.Process.Kill()
		return 1
	}

	code := m.Run()

	if err := serverCmd.Process.Kill(); err != nil {
		fmt.Printf("Failed to kill server: %v\n", err)
	}
	serverCmd.Wait()

	return code
}
