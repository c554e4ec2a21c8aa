package middleware

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
)

// Product types reported by system.product_type
const (
	ProductCore       = "CORE"
	ProductScale      = "SCALE"
	ProductCommunity  = "COMMUNITY_EDITION"
	ProductEnterprise = "ENTERPRISE"
)

// The TrueNAS release a client is talking to
type Version struct {
	// "TrueNAS"
	Name string
	// CORE, SCALE, COMMUNITY_EDITION or ENTERPRISE
	Type string
	// Numeric part of system.version, e.g. 13.0.0 for "TrueNAS-13.0-U5"
	Version *semver.Version
	// Whatever followed the numeric part ("U5", "RC.1"), without the separator
	Suffix string
}

func (v *Version) String() string {
	s := v.Name + " " + v.Type + " " + v.Version.String()
	if v.Suffix != "" {
		s += "-" + v.Suffix
	}
	return s
}

// AtLeast reports whether the release is s or newer. s must be a valid version.
func (v *Version) AtLeast(s string) bool {
	return !v.Version.LessThan(semver.MustParse(s))
}

// Between reports whether lo <= version < hi
func (v *Version) Between(lo, hi string) bool {
	return v.AtLeast(lo) && v.Version.LessThan(semver.MustParse(hi))
}

// IsScaleLike is true for the Linux-based releases (SCALE and its Community Edition rename)
func (v *Version) IsScaleLike() bool {
	return v.Type == ProductScale || v.Type == ProductCommunity
}

var versionRe = regexp.MustCompile(`^(\d+)(?:\.(\d+))?(?:\.(\d+))?((?:\.\d+)*)(?:[-._+~]?(.*))?$`)

// ParseVersion reads TrueNAS version strings such as 13.0-U5, 22.12.4.2 or 25.04.0. Only
// the first three numbers are compared. Leading zeros are ignored, so 24.04 is 24.4.0.
func ParseVersion(s string) (*semver.Version, string, error) {
	m := versionRe.FindStringSubmatch(strings.TrimSpace(s))

	if m == nil {
		return nil, "", fmt.Errorf("can't parse TrueNAS version %q", s)
	}

	var parts [3]uint64

	for i := 0; i < 3; i++ {
		if m[i+1] == "" {
			continue
		}

		n, err := strconv.ParseUint(m[i+1], 10, 64)

		if err != nil {
			return nil, "", fmt.Errorf("can't parse TrueNAS version %q: %w", s, err)
		}

		parts[i] = n
	}

	return semver.New(parts[0], parts[1], parts[2], "", ""), m[5], nil
}

var versions sync.Map // Client -> *Version

// GetVersion asks c which TrueNAS release it is connected to. The answer is remembered
// for the lifetime of c.
func GetVersion(ctx context.Context, c Client) (*Version, error) {
	if v, ok := versions.Load(c); ok {
		return v.(*Version), nil
	}

	name, err := c.CallString(ctx, "system.product_name")

	if err != nil {
		return nil, err
	}

	typ, err := c.CallString(ctx, "system.product_type")

	if err != nil {
		return nil, err
	}

	raw, err := c.CallString(ctx, "system.version")

	if err != nil {
		return nil, err
	}

	raw = strings.TrimPrefix(raw, name+"-")

	sv, suffix, err := ParseVersion(raw)

	if err != nil {
		return nil, err
	}

	v := &Version{
		Name:    name,
		Type:    typ,
		Version: sv,
		Suffix:  suffix,
	}

	versions.Store(c, v)

	return v, nil
}

// ForgetVersion drops the remembered version for c, e.g. after Close
func ForgetVersion(c Client) {
	versions.Delete(c)
}
