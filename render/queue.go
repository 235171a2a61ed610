// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"math/bits"
)

// Render queue identifiers. Queues render in ascending id order.
const (
	QueueBackground     uint8 = 0
	QueueSkiesEarly     uint8 = 5
	QueueWorldGeometry1 uint8 = 25
	QueueMain           uint8 = 50
	QueueWorldGeometry2 uint8 = 75
	QueueSkiesLate      uint8 = 95
	QueueOverlay        uint8 = 100
	QueueMax            uint8 = 105
)

// QueueCount is the number of distinct queue ids.
const QueueCount = int(QueueMax) + 1

// QueueSet is a set of render queue ids.
type QueueSet [2]uint64

// Add inserts id.
func (s *QueueSet) Add(id uint8) {
	if int(id) >= QueueCount {
		return
	}
	s[id>>6] |= 1 << (id & 63)
}

// AddRange inserts every id in [first, last].
func (s *QueueSet) AddRange(first, last uint8) {
	for id := int(first); id <= int(last) && id < QueueCount; id++ {
		s.Add(uint8(id))
	}
}

// Has reports whether id is in the set.
func (s QueueSet) Has(id uint8) bool {
	if int(id) >= QueueCount {
		return false
	}
	return s[id>>6]&(1<<(id&63)) != 0
}

// Empty reports whether the set has no ids.
func (s QueueSet) Empty() bool {
	return s[0] == 0 && s[1] == 0
}

// Len returns the number of ids.
func (s QueueSet) Len() int {
	return bits.OnesCount64(s[0]) + bits.OnesCount64(s[1])
}

// IDs returns the ids in ascending order.
func (s QueueSet) IDs() []uint8 {
	out := make([]uint8, 0, s.Len())
	for id := 0; id < QueueCount; id++ {
		if s.Has(uint8(id)) {
			out = append(out, uint8(id))
		}
	}
	return out
}

// RenderQueueListener observes render queue boundaries during a scene
// render.
type RenderQueueListener interface {
	// RenderQueueStarted runs before queue id renders. Returning true
	// skips the queue contents.
	RenderQueueStarted(id uint8) (skip bool)

	// RenderQueueEnded runs after queue id renders.
	RenderQueueEnded(id uint8)
}
