package compare

import (
	"cmp"
	"slices"
	"strings"

	"github.com/HerbHall/wificomp/pkg/models"
)

// Identity is one access point as seen across sessions under a match mode.
// Under SSID or Both matching it may span several hardware addresses.
type Identity struct {
	// Key is the lowest BSSID in the identity; unique within a result.
	Key    string
	SSID   string
	BSSIDs []string
	SSIDs  []string
}

// Label is the SSID, or "<hidden>" for networks without one.
func (id Identity) Label() string {
	if id.SSID == "" {
		return "<hidden>"
	}
	return id.SSID
}

// unionFind groups access point keys into identities.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{parent: make([]int, n)}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[rb] = ra
	}
}

// resolution maps every (BSSID, SSID) pair to its identity.
type resolution struct {
	identities []Identity
	index      map[models.APKey]int
}

// resolve groups keys into identities. BSSID mode joins keys sharing an
// address; SSID mode joins keys sharing a network name; Both joins on
// either. An empty SSID never joins by name, so hidden networks fall back
// to their address. Joining is transitive.
func resolve(keys []models.APKey, mode models.MatchMode) resolution {
	uf := newUnionFind(len(keys))
	byBSSID := make(map[string]int)
	bySSID := make(map[string]int)

	for i, k := range keys {
		joinBSSID := mode == models.MatchByBSSID || mode == models.MatchEither ||
			(mode == models.MatchBySSID && k.SSID == "")
		if joinBSSID {
			if j, ok := byBSSID[k.BSSID]; ok {
				uf.union(j, i)
			} else {
				byBSSID[k.BSSID] = i
			}
		}
		if mode != models.MatchByBSSID && k.SSID != "" {
			if j, ok := bySSID[k.SSID]; ok {
				uf.union(j, i)
			} else {
				bySSID[k.SSID] = i
			}
		}
	}

	groups := make(map[int][]models.APKey)
	var roots []int
	for i, k := range keys {
		r := uf.find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], k)
	}

	type rooted struct {
		root int
		id   Identity
	}
	grouped := make([]rooted, 0, len(roots))
	for _, r := range roots {
		grouped = append(grouped, rooted{root: r, id: newIdentity(groups[r])})
	}
	slices.SortFunc(grouped, func(a, b rooted) int {
		if c := strings.Compare(strings.ToLower(a.id.SSID), strings.ToLower(b.id.SSID)); c != 0 {
			return c
		}
		return cmp.Compare(a.id.Key, b.id.Key)
	})

	res := resolution{
		identities: make([]Identity, len(grouped)),
		index:      make(map[models.APKey]int, len(keys)),
	}
	pos := make(map[int]int, len(grouped))
	for i, g := range grouped {
		res.identities[i] = g.id
		pos[g.root] = i
	}
	for i, k := range keys {
		res.index[k] = pos[uf.find(i)]
	}
	return res
}

func newIdentity(keys []models.APKey) Identity {
	var id Identity
	for _, k := range keys {
		if !slices.Contains(id.BSSIDs, k.BSSID) {
			id.BSSIDs = append(id.BSSIDs, k.BSSID)
		}
		if k.SSID != "" && !slices.Contains(id.SSIDs, k.SSID) {
			id.SSIDs = append(id.SSIDs, k.SSID)
		}
	}
	slices.Sort(id.BSSIDs)
	slices.Sort(id.SSIDs)
	id.Key = id.BSSIDs[0]
	if len(id.SSIDs) > 0 {
		id.SSID = id.SSIDs[0]
	}
	return id
}

// lookup returns the identity index for an observation.
func (r resolution) lookup(o models.Observation) (int, bool) {
	i, ok := r.index[models.APKey{BSSID: o.BSSID, SSID: o.SSID}]
	return i, ok
}
