package device

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/apex/log"

	"staytuned/src/application/executor"
)

type Backend string

const (
	CPU  Backend = "cpu"
	CUDA Backend = "cuda"
	MPS  Backend = "mps"
)

// Descriptor describes the acceleration backend inference should run on.
type Descriptor struct {
	Backend Backend
	GPUName string
	Threads int
}

// InferenceArgs renders the descriptor as demucs device arguments.
func (d Descriptor) InferenceArgs() []string {
	args := []string{"-d", string(d.Backend)}
	if d.Backend == CPU {
		args = append(args, "-j", strconv.Itoa(d.Threads))
	}

	return args
}

func DefaultSelector(commandExecutor executor.Executor) Selector {
	return Selector{
		GOOS:            runtime.GOOS,
		GOARCH:          runtime.GOARCH,
		LookPath:        exec.LookPath,
		CommandExecutor: commandExecutor,
	}
}

type Selector struct {
	GOOS            string
	GOARCH          string
	LookPath        func(file string) (string, error)
	CommandExecutor executor.Executor
}

// Select probes for the best available backend. CPU is always available,
// so there is no failure path.
func (s Selector) Select() Descriptor {
	if s.GOOS == "darwin" && s.GOARCH == "arm64" {
		log.Info("Using Apple Silicon GPU (MPS)")
		return Descriptor{Backend: MPS}
	}

	if _, err := s.LookPath("nvidia-smi"); err == nil {
		gpuName := s.queryGPUName()
		log.WithField("gpu_name", gpuName).Info("Using NVIDIA GPU")
		return Descriptor{Backend: CUDA, GPUName: gpuName}
	}

	threads := runtime.NumCPU()
	log.WithField("threads", threads).Info("Using CPU")
	return Descriptor{Backend: CPU, Threads: threads}
}

func (s Selector) queryGPUName() string {
	cmd := s.CommandExecutor.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return ""
	}

	return strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
}
