// Package devices enumerates video4linux capture devices so users can pick a
// recording source without guessing device paths.
package devices

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pilebones/go-udev/crawler"
	"github.com/pilebones/go-udev/netlink"

	"presence/internal/logging"
)

// Device describes one capture device node.
type Device struct {
	// Path is the device node, e.g. /dev/video0.
	Path string
	// Name is the driver-reported card name when available.
	Name string
}

// Enumerator lists capture devices by crawling the kernel's exported device
// tree through udev uevent files.
type Enumerator struct {
	logger *slog.Logger
}

// NewEnumerator constructs a device enumerator.
func NewEnumerator(logger *slog.Logger) *Enumerator {
	return &Enumerator{logger: logging.NewComponentLogger(logger, "devices")}
}

// List returns all video4linux device nodes, sorted by path.
func (e *Enumerator) List(ctx context.Context) ([]Device, error) {
	queue := make(chan crawler.Device)
	errs := make(chan error)
	quit := crawler.ExistingDevices(queue, errs, videoMatcher())

	var devices []Device
	for {
		select {
		case <-ctx.Done():
			close(quit)
			return devices, ctx.Err()
		case err := <-errs:
			e.logger.Warn("device crawl error", logging.Error(err))
		case found, more := <-queue:
			if !more {
				sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
				return devices, nil
			}
			if device, ok := deviceFromEnv(found.KObj, found.Env); ok {
				devices = append(devices, device)
			}
		}
	}
}

// videoMatcher matches uevent files carrying a videoN device name. The
// SUBSYSTEM key is absent from sysfs uevent files, so the device name is the
// reliable discriminator.
func videoMatcher() netlink.Matcher {
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Env: map[string]string{
			"DEVNAME": `video\d+`,
		},
	})
	return rules
}

func deviceFromEnv(kobj string, env map[string]string) (Device, bool) {
	devname := strings.TrimSpace(env["DEVNAME"])
	if devname == "" {
		return Device{}, false
	}
	path := devname
	if !strings.HasPrefix(path, "/") {
		path = "/dev/" + path
	}
	return Device{Path: path, Name: readCardName(kobj)}, true
}

// readCardName reads the driver-reported card name exported next to the
// uevent file. Missing names are not an error.
func readCardName(kobj string) string {
	if kobj == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(kobj, "name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
