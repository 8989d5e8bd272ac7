package supervisor

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"debug/pe"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/pkg/errors"
)

// Arch is the word size of a supported target binary.
type Arch int

const (
	ArchUnknown Arch = iota
	Arch32
	Arch64
)

func (a Arch) String() string {
	switch a {
	case Arch32:
		return "32-bit"
	case Arch64:
		return "64-bit"
	default:
		return "unknown"
	}
}

var (
	elfMachines = map[elf.Machine]Arch{
		elf.EM_386:     Arch32,
		elf.EM_ARM:     Arch32,
		elf.EM_X86_64:  Arch64,
		elf.EM_AARCH64: Arch64,
	}
	peMachines = map[uint16]Arch{
		pe.IMAGE_FILE_MACHINE_I386:  Arch32,
		pe.IMAGE_FILE_MACHINE_ARMNT: Arch32,
		pe.IMAGE_FILE_MACHINE_AMD64: Arch64,
		pe.IMAGE_FILE_MACHINE_ARM64: Arch64,
	}
	machoCpus = map[macho.Cpu]Arch{
		macho.Cpu386:   Arch32,
		macho.CpuArm:   Arch32,
		macho.CpuAmd64: Arch64,
		macho.CpuArm64: Arch64,
	}
)

// CheckArch returns the architecture of the executable at path. Files
// that are not ELF, PE or Mach-O binaries, like interpreter scripts, are
// accepted as ArchUnknown.
func CheckArch(path string) (Arch, error) {
	resolved, err := exec.LookPath(path)
	if err != nil {
		return ArchUnknown, &LaunchFailedError{Step: "find target executable", Err: err}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return ArchUnknown, errors.Wrapf(err, "failed to open %s", resolved)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return ArchUnknown, nil
	}

	var (
		arch    Arch
		ok      bool
		machine string
	)
	switch {
	case bytes.Equal(magic[:], []byte(elf.ELFMAG)):
		ef, err := elf.NewFile(f)
		if err != nil {
			return ArchUnknown, errors.Wrapf(err, "failed to parse %s", resolved)
		}
		arch, ok = elfMachines[ef.Machine]
		machine = ef.Machine.String()
	case magic[0] == 'M' && magic[1] == 'Z':
		pf, err := pe.NewFile(f)
		if err != nil {
			return ArchUnknown, errors.Wrapf(err, "failed to parse %s", resolved)
		}
		arch, ok = peMachines[pf.Machine]
		machine = fmt.Sprintf("%#04x", pf.Machine)
	case isMachO(magic):
		mf, err := macho.NewFile(f)
		if err != nil {
			return ArchUnknown, errors.Wrapf(err, "failed to parse %s", resolved)
		}
		arch, ok = machoCpus[mf.Cpu]
		machine = mf.Cpu.String()
	case binary.BigEndian.Uint32(magic[:]) == macho.MagicFat:
		ff, err := macho.NewFatFile(f)
		if err != nil {
			return ArchUnknown, errors.Wrapf(err, "failed to parse %s", resolved)
		}
		for _, a := range ff.Arches {
			if arch, ok = machoCpus[a.Cpu]; ok {
				break
			}
		}
		machine = "universal"
	default:
		return ArchUnknown, nil
	}

	if !ok {
		return ArchUnknown, &UnsupportedArchitectureError{Path: resolved, Machine: machine}
	}

	return arch, nil
}

func isMachO(magic [4]byte) bool {
	for _, m := range []uint32{binary.LittleEndian.Uint32(magic[:]), binary.BigEndian.Uint32(magic[:])} {
		if m == macho.Magic32 || m == macho.Magic64 {
			return true
		}
	}
	return false
}
