package utils

import (
	"path/filepath"
	"sort"
	"strings"
)

// RootGroup is one set of input paths sharing a physical volume, with the
// deepest directory common to all of them.
type RootGroup struct {
	Root  string
	Label string
	Paths []string
}

// mountParents are directory prefixes whose children are distinct volumes,
// not siblings: /mnt/a and /mnt/b must never collapse into one group.
var mountParents = map[string]bool{
	"mnt":     true,
	"media":   true,
	"Volumes": true,
	"run":     true,
}

// ComputeCommonRoots groups absolute input paths by volume and finds each
// group's common root directory. Groups come back sorted by root for
// stable output.
func ComputeCommonRoots(paths []string) []RootGroup {
	byVolume := make(map[string][]string)
	for _, p := range paths {
		p = filepath.Clean(p)
		byVolume[volumeKey(p)] = append(byVolume[volumeKey(p)], p)
	}

	groups := make([]RootGroup, 0, len(byVolume))
	for key, members := range byVolume {
		root := commonDir(members)
		label := DriveLabel(root)
		// a mounted volume is labeled by its mount name, not the common dir
		if i := strings.LastIndex(key, "/"); i >= 0 {
			label = key[i+1:]
		}
		groups = append(groups, RootGroup{
			Root:  root,
			Label: label,
			Paths: members,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Root < groups[j].Root })
	return groups
}

// volumeKey identifies the physical volume a path lives on: the drive on
// Windows, the mount point under a known mount parent, or the first path
// component otherwise.
func volumeKey(path string) string {
	if vol := filepath.VolumeName(path); vol != "" {
		return vol
	}
	parts := splitComponents(path)
	if len(parts) >= 2 && mountParents[parts[0]] {
		return parts[0] + "/" + parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return "/"
}

// commonDir is the deepest directory containing every path in the set.
func commonDir(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	common := filepath.Dir(paths[0])
	for _, p := range paths[1:] {
		dir := filepath.Dir(p)
		for !isUnder(dir, common) {
			parent := filepath.Dir(common)
			if parent == common {
				break
			}
			common = parent
		}
	}
	return common
}

func isUnder(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// DriveLabel names the per-volume subdirectory in the copy layout: the
// root's last component, or the drive letter on Windows.
func DriveLabel(root string) string {
	if vol := filepath.VolumeName(root); vol != "" && strings.EqualFold(filepath.Clean(root), vol+string(filepath.Separator)) {
		return strings.TrimSuffix(vol, ":")
	}
	base := filepath.Base(root)
	if base == string(filepath.Separator) || base == "." || base == "" {
		return "root"
	}
	return base
}

// ComputeDestPath places path under destRoot/<label>/, keeping its layout
// relative to the group root. Paths outside the root fall back to their
// bare filename.
func ComputeDestPath(path, groupRoot, label, destRoot string) string {
	rel, err := filepath.Rel(groupRoot, filepath.Clean(path))
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(path)
	}
	return filepath.Join(destRoot, label, rel)
}

func splitComponents(path string) []string {
	path = strings.TrimPrefix(filepath.ToSlash(path), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
