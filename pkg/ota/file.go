package ota

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// ErrInvalidOtaFile is returned for unreadable images and names that do not
// follow the naming scheme.
var ErrInvalidOtaFile = errors.New("invalid ota file")

// File is a firmware image on disk. The image is read only by Load.
type File struct {
	Name       string
	Path       string
	DeviceType mesh.DeviceType
	Version    string

	// VersionCode is the version times 100: "V1.23" is 123.
	VersionCode int
}

// ParseFile describes the image at path from its name.
func ParseFile(path string) (File, error) {
	name := filepath.Base(path)
	trimmed := strings.TrimSuffix(strings.ReplaceAll(name, "0X", ""), ".bin")
	parts := strings.Split(trimmed, "#")
	if len(parts) != 3 {
		return File{}, fmt.Errorf("%w: %s", ErrInvalidOtaFile, name)
	}
	rawType, err := strconv.ParseUint(parts[0], 16, 8)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: device type: %v", ErrInvalidOtaFile, name, err)
	}
	rawSubType, err := strconv.ParseUint(parts[1], 16, 8)
	if err != nil {
		return File{}, fmt.Errorf("%w: %s: sub type: %v", ErrInvalidOtaFile, name, err)
	}
	return File{
		Name:        name,
		Path:        path,
		DeviceType:  mesh.NewDeviceType(uint8(rawType), uint8(rawSubType)),
		Version:     parts[2],
		VersionCode: VersionCode(parts[2]),
	}, nil
}

// VersionCode converts a version string such as "V1.23" to 123. Strings
// without a "V" are version 0.
func VersionCode(version string) int {
	if !strings.Contains(version, "V") {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(version, "V", "")), 64)
	if err != nil {
		return 0
	}
	return int(math.Round(v * 100))
}

// NeedsUpdate reports whether f is newer than the current version string
// read from a node.
func (f File) NeedsUpdate(current string) bool {
	return VersionCode(current) < f.VersionCode
}

// Load reads the whole image.
func (f File) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOtaFile, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidOtaFile, f.Name)
	}
	return data, nil
}

// Files lists the images in dir. Names that do not parse are skipped.
func Files(dir string) ([]File, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.bin"))
	if err != nil {
		return nil, err
	}
	var files []File
	for _, p := range paths {
		if f, err := ParseFile(p); err == nil {
			files = append(files, f)
		}
	}
	return files, nil
}

// FirmwareType maps a device type to the type its firmware is published
// under. Light sub types 0x30..0x36 share one image, as do 0x60..0x66.
func FirmwareType(t mesh.DeviceType) mesh.DeviceType {
	if t.Category() != mesh.CategoryLight {
		return t
	}
	switch {
	case t.RawSubType >= 0x30 && t.RawSubType <= 0x36:
		return mesh.NewDeviceType(t.RawType, 0x30)
	case t.RawSubType >= 0x60 && t.RawSubType <= 0x66:
		return mesh.NewDeviceType(t.RawType, 0x60)
	}
	return t
}

// LatestFile returns the newest image in dir for the device type.
func LatestFile(dir string, t mesh.DeviceType) (File, bool, error) {
	files, err := Files(dir)
	if err != nil {
		return File{}, false, err
	}
	want := FirmwareType(t)
	var (
		latest File
		found  bool
	)
	for _, f := range files {
		if f.DeviceType != want {
			continue
		}
		if !found || f.VersionCode > latest.VersionCode {
			latest, found = f, true
		}
	}
	return latest, found, nil
}
