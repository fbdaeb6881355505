package slab

// pageList is the intrusive doubly linked partially-used-page list described
// in spec §3.2/§4.2's "Partially-used-page list discipline": a page with at
// least one free slot and at least one allocated slot (or a freshly
// formatted page) lives here. Ported from the push_back/remove/
// assign_singleton operations exercised by
// original_source/slab_alloc/src/test_pagelist.rs.
type pageList struct {
	head, tail *pageHeader
}

// pushBack appends node to the tail of the list. node's own links may be in
// any state; they are overwritten.
func (l *pageList) pushBack(node *pageHeader) {
	node.link.prev = l.tail
	node.link.next = nil

	if l.tail != nil {
		l.tail.link.next = node
	} else {
		l.head = node
	}
	l.tail = node
}

// remove unlinks node from the list. node must currently be a member of l;
// behavior is undefined otherwise.
func (l *pageList) remove(node *pageHeader) {
	if node.link.prev != nil {
		node.link.prev.link.next = node.link.next
	} else {
		l.head = node.link.next
	}

	if node.link.next != nil {
		node.link.next.link.prev = node.link.prev
	} else {
		l.tail = node.link.prev
	}

	node.link.prev = nil
	node.link.next = nil
}

// assignSingleton resets the list to contain exactly node, discarding
// whatever it previously held.
func (l *pageList) assignSingleton(node *pageHeader) {
	node.link.prev = nil
	node.link.next = nil
	l.head = node
	l.tail = node
}

func (l *pageList) empty() bool {
	return l.head == nil
}
