// Package seccomp builds the syscall filter applied to seqkit containers.
package seccomp

import (
	"fmt"
	"sort"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// errnoEPERM is the errno returned by explicitly blocked syscalls.
const errnoEPERM uint = 1

// Architectures maps a GOARCH value to the seccomp architectures a
// container on that host can execute. Unknown values get the two common
// 64-bit targets.
func Architectures(goarch string) []specs.Arch {
	switch goarch {
	case "amd64":
		return []specs.Arch{specs.ArchX86_64, specs.ArchX86, specs.ArchX32}
	case "arm64":
		return []specs.Arch{specs.ArchAARCH64, specs.ArchARM}
	case "ppc64le":
		return []specs.Arch{specs.ArchPPC64LE}
	case "s390x":
		return []specs.Arch{specs.ArchS390X}
	default:
		return []specs.Arch{specs.ArchX86_64, specs.ArchAARCH64}
	}
}

// ProfileBuilder assembles a deny-by-default seccomp profile. A syscall may
// appear in only one rule; Build reports every conflict.
type ProfileBuilder struct {
	profile   specs.LinuxSeccomp
	actions   map[string]specs.LinuxSeccompAction
	conflicts []string
}

func NewBuilder() *ProfileBuilder {
	return &ProfileBuilder{
		profile: specs.LinuxSeccomp{DefaultAction: specs.ActErrno},
		actions: make(map[string]specs.LinuxSeccompAction),
	}
}

func (b *ProfileBuilder) add(action specs.LinuxSeccompAction, errnoRet *uint, names []string) *ProfileBuilder {
	if len(names) == 0 {
		return b
	}
	for _, n := range names {
		if prev, ok := b.actions[n]; ok {
			b.conflicts = append(b.conflicts, fmt.Sprintf("%s (%s, %s)", n, prev, action))
			continue
		}
		b.actions[n] = action
	}
	b.profile.Syscalls = append(b.profile.Syscalls, specs.LinuxSyscall{
		Names:    append([]string(nil), names...),
		Action:   action,
		ErrnoRet: errnoRet,
	})
	return b
}

func (b *ProfileBuilder) AllowSyscalls(names ...string) *ProfileBuilder {
	return b.add(specs.ActAllow, nil, names)
}

// BlockSyscalls fails the listed syscalls with EPERM.
func (b *ProfileBuilder) BlockSyscalls(names ...string) *ProfileBuilder {
	errno := errnoEPERM
	return b.add(specs.ActErrno, &errno, names)
}

// TrapSyscalls kills the process with SIGSYS.
func (b *ProfileBuilder) TrapSyscalls(names ...string) *ProfileBuilder {
	return b.add(specs.ActTrap, nil, names)
}

func (b *ProfileBuilder) WithArchitectures(archs ...specs.Arch) *ProfileBuilder {
	b.profile.Architectures = append([]specs.Arch(nil), archs...)
	return b
}

// Build returns a copy of the profile, or an error naming every syscall
// that was given more than one action.
func (b *ProfileBuilder) Build() (*specs.LinuxSeccomp, error) {
	if len(b.conflicts) > 0 {
		c := append([]string(nil), b.conflicts...)
		sort.Strings(c)
		return nil, fmt.Errorf("conflicting seccomp rules: %s", strings.Join(c, ", "))
	}
	p := b.profile
	p.Syscalls = append([]specs.LinuxSyscall(nil), b.profile.Syscalls...)
	return &p, nil
}
