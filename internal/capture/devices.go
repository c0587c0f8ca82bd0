package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// SysfsVideoDir is where the kernel lists V4L2 devices.
const SysfsVideoDir = "/sys/class/video4linux"

// Device is a video input that can be passed as Constraints.DeviceID.
type Device struct {
	ID    string
	Label string
}

// ListDevices returns the V4L2 capture devices known to the kernel.
func ListDevices() ([]Device, error) {
	return listDevicesIn(SysfsVideoDir, "/dev")
}

func listDevicesIn(sysDir, devDir string) ([]Device, error) {
	entries, err := os.ReadDir(sysDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list video devices: %w", err)
	}

	type numbered struct {
		n    int
		name string
	}
	var nodes []numbered
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "video") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name, "video"))
		if err != nil {
			continue
		}
		nodes = append(nodes, numbered{n: n, name: name})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].n < nodes[j].n })

	devices := make([]Device, 0, len(nodes))
	for i, node := range nodes {
		label := ""
		if data, err := os.ReadFile(filepath.Join(sysDir, node.name, "name")); err == nil {
			label = strings.TrimSpace(string(data))
		}
		if label == "" {
			label = fmt.Sprintf("Camera %d", i+1)
		}
		devices = append(devices, Device{
			ID:    filepath.Join(devDir, node.name),
			Label: label,
		})
	}
	return devices, nil
}

// PreferredDevice picks a rear-facing camera when a label says so, otherwise
// the first device. It returns "" for an empty list.
func PreferredDevice(devices []Device) string {
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		if strings.Contains(label, "back") || strings.Contains(label, "rear") || strings.Contains(label, "environment") {
			return d.ID
		}
	}
	if len(devices) > 0 {
		return devices[0].ID
	}
	return ""
}
