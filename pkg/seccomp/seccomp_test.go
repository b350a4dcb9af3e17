package seccomp

import (
	"encoding/json"
	"runtime"
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqkitProfile(t *testing.T) *specs.LinuxSeccomp {
	t.Helper()
	p, err := SeqkitProfile()
	require.NoError(t, err)
	return p
}

func actionFor(p *specs.LinuxSeccomp, syscall string) (specs.LinuxSeccompAction, bool) {
	for _, rule := range p.Syscalls {
		for _, name := range rule.Names {
			if name == syscall {
				return rule.Action, true
			}
		}
	}
	return "", false
}

func TestSeqkitProfile_DenyByDefault(t *testing.T) {
	p := seqkitProfile(t)
	assert.Equal(t, specs.ActErrno, p.DefaultAction)
}

func TestSeqkitProfile_GoRuntimeAllowed(t *testing.T) {
	p := seqkitProfile(t)
	for _, name := range []string{"futex", "clone", "sched_yield", "openat", "mmap", "epoll_pwait"} {
		action, ok := actionFor(p, name)
		require.True(t, ok, "syscall %s missing", name)
		assert.Equal(t, specs.ActAllow, action, name)
	}
}

func TestSeqkitProfile_NoNetwork(t *testing.T) {
	p := seqkitProfile(t)
	for _, name := range []string{"socket", "connect", "bind"} {
		action, ok := actionFor(p, name)
		require.True(t, ok)
		assert.Equal(t, specs.ActErrno, action, name)
	}
}

func TestSeqkitProfile_TrapsDangerous(t *testing.T) {
	action, ok := actionFor(seqkitProfile(t), "ptrace")
	require.True(t, ok)
	assert.Equal(t, specs.ActTrap, action)
}

func TestDockerProfileJSON_ValidJSON(t *testing.T) {
	data, err := DockerProfileJSON()
	require.NoError(t, err)

	var dp struct {
		DefaultAction string   `json:"defaultAction"`
		Architectures []string `json:"architectures"`
		Syscalls      []struct {
			Names  []string `json:"names"`
			Action string   `json:"action"`
		} `json:"syscalls"`
	}
	require.NoError(t, json.Unmarshal(data, &dp))
	assert.Equal(t, "SCMP_ACT_ERRNO", dp.DefaultAction)
	assert.Len(t, dp.Architectures, len(Architectures(runtime.GOARCH)))
	assert.NotEmpty(t, dp.Syscalls)
}

func TestSeqkitProfile_HostArchitectures(t *testing.T) {
	assert.Equal(t, Architectures(runtime.GOARCH), seqkitProfile(t).Architectures)
}

func TestSeqkitProfile_BlockedReturnEPERM(t *testing.T) {
	for _, rule := range seqkitProfile(t).Syscalls {
		if rule.Action != specs.ActErrno {
			assert.Nil(t, rule.ErrnoRet, rule.Names)
			continue
		}
		require.NotNil(t, rule.ErrnoRet, rule.Names)
		assert.Equal(t, uint(1), *rule.ErrnoRet)
	}
}

func TestArchitectures(t *testing.T) {
	tests := []struct {
		goarch string
		want   []specs.Arch
	}{
		{"amd64", []specs.Arch{specs.ArchX86_64, specs.ArchX86, specs.ArchX32}},
		{"arm64", []specs.Arch{specs.ArchAARCH64, specs.ArchARM}},
		{"s390x", []specs.Arch{specs.ArchS390X}},
		{"riscv64", []specs.Arch{specs.ArchX86_64, specs.ArchAARCH64}},
	}
	for _, tt := range tests {
		t.Run(tt.goarch, func(t *testing.T) {
			assert.Equal(t, tt.want, Architectures(tt.goarch))
		})
	}
}

func TestProfileBuilder(t *testing.T) {
	p, err := NewBuilder().
		WithArchitectures(specs.ArchAARCH64).
		AllowSyscalls("read", "write").
		AllowSyscalls().
		Build()
	require.NoError(t, err)

	assert.Equal(t, specs.ActErrno, p.DefaultAction)
	assert.Equal(t, []specs.Arch{specs.ArchAARCH64}, p.Architectures)
	require.Len(t, p.Syscalls, 1)
	assert.Equal(t, specs.ActAllow, p.Syscalls[0].Action)
	assert.Equal(t, []string{"read", "write"}, p.Syscalls[0].Names)
}

func TestProfileBuilder_Conflicts(t *testing.T) {
	_, err := NewBuilder().
		AllowSyscalls("read", "socket", "ptrace").
		BlockSyscalls("socket").
		TrapSyscalls("ptrace").
		Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ptrace (SCMP_ACT_ALLOW, SCMP_ACT_TRAP)")
	assert.Contains(t, err.Error(), "socket (SCMP_ACT_ALLOW, SCMP_ACT_ERRNO)")
}

func TestProfileBuilder_BuildReturnsCopy(t *testing.T) {
	b := NewBuilder().AllowSyscalls("read")
	first, err := b.Build()
	require.NoError(t, err)

	b.AllowSyscalls("write")
	assert.Len(t, first.Syscalls, 1)
}
