package routes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const minRefLen = 3

// registry assigns short deterministic component refs.
type registry struct {
	components map[string]Component
}

func newRegistry() *registry {
	return &registry{components: map[string]Component{}}
}

// add registers c under the shortest unused prefix (at least three hex chars) of its digest.
func (r *registry) add(routePath string, c Component) (string, error) {
	sum := sha256.Sum256([]byte(string(c.Kind) + "\x00" + routePath + "\x00" + c.Source))
	digest := hex.EncodeToString(sum[:])
	for n := minRefLen; n <= len(digest); n++ {
		ref := digest[:n]
		if _, taken := r.components[ref]; !taken {
			r.components[ref] = c
			return ref, nil
		}
	}
	return "", fmt.Errorf("duplicate %s component for %s", c.Kind, routePath)
}
