package slab

import (
	"unsafe"

	"github.com/achilleasa/memcore/kernel/mem"
)

// redzoneSize is the fixed run of sentinel bytes flanking every slot's
// payload, used to detect adjacent over/underwrites (spec's GLOSSARY entry
// for "Redzone"). Matches original_source/slab_alloc/src/lib.rs's
// REDZONE_SIZE.
const redzoneSize = 16

// Slot header magic tags and fill bytes: two magic values and two fill
// patterns, as listed in spec §3.2. The numeric values themselves are not
// load-bearing; they are chosen to be easy to spot in a raw memory dump,
// the same reasoning behind the original's 0x6b5c/0xf1/0xe2 choices.
const (
	magicEmpty     uint16 = 0x0000
	magicAllocated uint16 = 0x6b5c
	redzoneFill    byte   = 0xf1
	poisonFill     byte   = 0xe2
)

// pageLink is the intrusive doubly linked list node embedded in every page
// header, grounded on original_source/slab_alloc/src/test_pagelist.rs's
// PageLink.
type pageLink struct {
	prev, next *pageHeader
}

// pageHeader sits at the start of every unit page the slab allocator owns.
type pageHeader struct {
	link       pageLink
	freeHead   uint16
	allocCount uint16
}

// slotHeader sits at the start of every slot within a page.
type slotHeader struct {
	magic uint16
	next  uint16
}

func headerAt(addr uintptr) *pageHeader { return (*pageHeader)(unsafe.Pointer(addr)) }
func slotAt(addr uintptr) *slotHeader   { return (*slotHeader)(unsafe.Pointer(addr)) }

// pageAddrOf returns the page-aligned base address containing slotAddr.
func pageAddrOf(slotAddr uintptr) uintptr {
	return mem.Align(slotAddr, mem.UnitSize)
}

func alignUp16(x, alignment uint16) uint16 {
	mask := alignment - 1
	return (x + mask) &^ mask
}
