package level

// Visibility is the potentially visible set: one bit row per cluster, bit b
// of row a set when cluster b may be seen from cluster a.
type Visibility struct {
	NumClusters     int
	BytesPerCluster int
	Bits            []byte
}

// IsClusterVisible reports whether cluster to may be visible from cluster
// from. A negative from, or a level without visibility data, sees everything.
func (v *Visibility) IsClusterVisible(from, to int) bool {
	if from < 0 || len(v.Bits) == 0 {
		return true
	}
	if to < 0 {
		return false
	}
	i := from*v.BytesPerCluster + to>>3
	if i >= len(v.Bits) {
		return true
	}
	return v.Bits[i]&(1<<(to&7)) != 0
}
