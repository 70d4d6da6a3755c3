package scanner

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mdlayher/wifi"
	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// DefaultSysfsRoot is where per-interface driver information is read from.
const DefaultSysfsRoot = "/sys/class/net"

// InterfaceLister returns the names of WiFi station interfaces.
type InterfaceLister func(ctx context.Context) ([]string, error)

// Detector enumerates WiFi adapters and resolves their driver and chipset.
type Detector struct {
	logger    *zap.Logger
	sysfsRoot string
	list      InterfaceLister
	run       Runner
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithSysfsRoot points driver lookups at a different sysfs tree.
func WithSysfsRoot(root string) DetectorOption {
	return func(d *Detector) { d.sysfsRoot = root }
}

// WithInterfaceLister replaces nl80211 enumeration.
func WithInterfaceLister(fn InterfaceLister) DetectorOption {
	return func(d *Detector) { d.list = fn }
}

// WithDetectorRunner replaces the runner used for the `iw dev` fallback.
func WithDetectorRunner(r Runner) DetectorOption {
	return func(d *Detector) { d.run = r }
}

// NewDetector returns a Detector that lists interfaces over nl80211 and
// falls back to parsing `iw dev` when netlink is unavailable.
func NewDetector(logger *zap.Logger, opts ...DetectorOption) *Detector {
	d := &Detector{
		logger:    logger,
		sysfsRoot: DefaultSysfsRoot,
		list:      netlinkInterfaces,
		run:       ExecRunner,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Detect returns the available adapters sorted by interface name.
func (d *Detector) Detect(ctx context.Context) ([]models.AdapterInfo, error) {
	names, err := d.list(ctx)
	if err != nil {
		d.logger.Debug("nl80211 enumeration failed, falling back to iw dev", zap.Error(err))
		stdout, stderr, runErr := d.run(ctx, "iw", "dev")
		if runErr != nil {
			return nil, fmt.Errorf("%w: iw dev: %v %s", ErrAdapterUnavailable, runErr, strings.TrimSpace(string(stderr)))
		}
		names = parseIWDev(string(stdout))
	}

	slices.Sort(names)
	names = slices.Compact(names)

	adapters := make([]models.AdapterInfo, 0, len(names))
	for _, name := range names {
		driver := d.driverFor(name)
		adapters = append(adapters, models.AdapterInfo{
			Interface: name,
			Driver:    driver,
			Chipset:   ChipsetForDriver(driver),
		})
	}
	return adapters, nil
}

// Find returns the adapter bound to iface.
func (d *Detector) Find(ctx context.Context, iface string) (models.AdapterInfo, error) {
	adapters, err := d.Detect(ctx)
	if err != nil {
		return models.AdapterInfo{}, err
	}
	for _, a := range adapters {
		if a.Interface == iface {
			return a, nil
		}
	}
	return models.AdapterInfo{}, fmt.Errorf("%w: %q not found", ErrAdapterUnavailable, iface)
}

func (d *Detector) driverFor(iface string) string {
	f, err := os.Open(filepath.Join(d.sysfsRoot, iface, "device", "uevent"))
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if v, ok := strings.CutPrefix(sc.Text(), "DRIVER="); ok {
			return strings.TrimSpace(v)
		}
	}
	return "unknown"
}

// ChipsetForDriver maps a kernel driver to a human-readable chipset family.
func ChipsetForDriver(driver string) string {
	switch driver {
	case "iwlwifi":
		return "Intel WiFi"
	case "ath9k", "ath9k_htc", "ath10k_pci", "ath11k", "ath11k_pci", "ath12k":
		return "Atheros WiFi"
	case "rtl8xxxu", "rtw88_pci", "rtw88_8821cu", "rtw89_pci", "r8188eu":
		return "Realtek WiFi"
	case "brcmfmac":
		return "Broadcom WiFi"
	case "mt76x2u", "mt7921e", "mt7921u", "mt7601u":
		return "MediaTek WiFi"
	case "", "unknown":
		return "Unknown Adapter"
	default:
		return driver + " adapter"
	}
}

func netlinkInterfaces(_ context.Context) ([]string, error) {
	c, err := wifi.New()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	ifis, err := c.Interfaces()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, ifi := range ifis {
		if ifi.Name == "" || ifi.Type != wifi.InterfaceTypeStation {
			continue
		}
		names = append(names, ifi.Name)
	}
	return names, nil
}

// parseIWDev extracts interface names from `iw dev` output. An interface is
// counted once its `type` line is seen.
func parseIWDev(out string) []string {
	var (
		names   []string
		current string
	)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if name, ok := strings.CutPrefix(line, "Interface "); ok {
			current = name
			continue
		}
		if strings.HasPrefix(line, "type ") && current != "" {
			names = append(names, current)
			current = ""
		}
	}
	return names
}
