package items

import "fmt"

// Doc is the ordered arena of items for one run. Stages reorder items only
// through its explicit Insert/Remove/Move operations.
type Doc struct {
	items []*Item
}

// NewDoc creates a Doc holding the given items in order.
func NewDoc(list []*Item) *Doc {
	return &Doc{items: append([]*Item(nil), list...)}
}

// Len returns the number of items.
func (d *Doc) Len() int {
	return len(d.items)
}

// At returns the item at index i.
func (d *Doc) At(i int) *Item {
	return d.items[i]
}

// Items returns a copy of the ordered item slice.
func (d *Doc) Items() []*Item {
	return append([]*Item(nil), d.items...)
}

// IndexOf returns the current position of it, or -1.
func (d *Doc) IndexOf(it *Item) int {
	for i, x := range d.items {
		if x == it {
			return i
		}
	}
	return -1
}

// Insert places it at index i, shifting later items down.
func (d *Doc) Insert(i int, it *Item) {
	if i < 0 {
		i = 0
	}
	if i > len(d.items) {
		i = len(d.items)
	}
	d.items = append(d.items, nil)
	copy(d.items[i+1:], d.items[i:])
	d.items[i] = it
}

// Remove deletes the item at index i and returns it.
func (d *Doc) Remove(i int) *Item {
	it := d.items[i]
	copy(d.items[i:], d.items[i+1:])
	d.items[len(d.items)-1] = nil
	d.items = d.items[:len(d.items)-1]
	return it
}

// Move relocates the item at index from so that it ends up immediately
// before the item that currently sits at index to. A to equal to Len()
// moves the item to the end.
func (d *Doc) Move(from, to int) error {
	if from < 0 || from >= len(d.items) {
		return fmt.Errorf("move: source index %d out of range [0,%d)", from, len(d.items))
	}
	if to < 0 || to > len(d.items) {
		return fmt.Errorf("move: target index %d out of range [0,%d]", to, len(d.items))
	}
	if to == from || to == from+1 {
		return nil
	}
	it := d.Remove(from)
	if to > from {
		to--
	}
	d.Insert(to, it)
	return nil
}

// Filter keeps only the items for which keep returns true.
func (d *Doc) Filter(keep func(*Item) bool) (dropped int) {
	out := d.items[:0]
	for _, it := range d.items {
		if keep(it) {
			out = append(out, it)
		} else {
			dropped++
		}
	}
	for i := len(out); i < len(d.items); i++ {
		d.items[i] = nil
	}
	d.items = out
	return dropped
}

// Append adds items to the end.
func (d *Doc) Append(list ...*Item) {
	d.items = append(d.items, list...)
}
