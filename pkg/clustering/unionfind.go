package clustering

// keySet assigns each distinct identifier key a dense index into a union-find arena
type keySet struct {
	index map[string]int
	uf    *unionFind
}

func newKeySet(capacity int) *keySet {
	return &keySet{
		index: make(map[string]int, capacity),
		uf:    newUnionFind(capacity),
	}
}

// id returns the arena index of key, adding it on first sight
func (k *keySet) id(key string) int {
	if i, ok := k.index[key]; ok {
		return i
	}
	i := k.uf.add()
	k.index[key] = i
	return i
}

func (k *keySet) union(a, b string) {
	k.uf.union(k.id(a), k.id(b))
}

func (k *keySet) root(key string) int {
	return k.uf.find(k.id(key))
}

// unionFind is a disjoint-set forest over 0..n-1 with path compression and union by rank
type unionFind struct {
	parent []int
	rank   []uint8
}

func newUnionFind(capacity int) *unionFind {
	return &unionFind{
		parent: make([]int, 0, capacity),
		rank:   make([]uint8, 0, capacity),
	}
}

// add creates a new singleton set and returns its index
func (u *unionFind) add() int {
	i := len(u.parent)
	u.parent = append(u.parent, i)
	u.rank = append(u.rank, 0)
	return i
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}
