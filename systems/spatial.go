// Package systems provides ECS systems for the simulation.
package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/herd/components"
)

// Cell is a spatial bucket coordinate.
type Cell struct {
	X, Y int32
}

// slot locates an entity inside the index.
type slot struct {
	cell Cell
	idx  int
}

// SpatialIndex buckets entities into fixed-size cells. Membership is
// maintained incrementally: callers Insert once, Update on every move and
// Remove on death. Only occupied cells are stored.
type SpatialIndex struct {
	cellSize int32
	cells    map[Cell][]ecs.Entity
	where    map[ecs.Entity]slot
}

// NewSpatialIndex creates an empty index with square cells of cellSize tiles.
func NewSpatialIndex(cellSize int) *SpatialIndex {
	if cellSize < 1 {
		cellSize = 1
	}
	return &SpatialIndex{
		cellSize: int32(cellSize),
		cells:    make(map[Cell][]ecs.Entity, 64),
		where:    make(map[ecs.Entity]slot, 256),
	}
}

// CellSize returns the cell side length in tiles.
func (s *SpatialIndex) CellSize() int32 {
	return s.cellSize
}

// CellOf returns the cell containing pos. Uses floor division so negative
// coordinates land in negative cells.
func (s *SpatialIndex) CellOf(pos components.Position) Cell {
	return Cell{X: floorDiv(pos.X, s.cellSize), Y: floorDiv(pos.Y, s.cellSize)}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// Insert adds e at pos. Inserting an entity that is already present moves it.
func (s *SpatialIndex) Insert(e ecs.Entity, pos components.Position) {
	if _, ok := s.where[e]; ok {
		s.Update(e, pos)
		return
	}
	s.add(e, s.CellOf(pos))
}

func (s *SpatialIndex) add(e ecs.Entity, c Cell) {
	members := s.cells[c]
	s.where[e] = slot{cell: c, idx: len(members)}
	s.cells[c] = append(members, e)
}

// Remove drops e from the index. Returns false if it was not present.
func (s *SpatialIndex) Remove(e ecs.Entity) bool {
	sl, ok := s.where[e]
	if !ok {
		return false
	}
	delete(s.where, e)

	members := s.cells[sl.cell]
	last := len(members) - 1
	if sl.idx != last {
		moved := members[last]
		members[sl.idx] = moved
		s.where[moved] = slot{cell: sl.cell, idx: sl.idx}
	}
	members = members[:last]
	if len(members) == 0 {
		delete(s.cells, sl.cell)
	} else {
		s.cells[sl.cell] = members
	}
	return true
}

// Update records that e moved to pos. The entity changes buckets only when
// its cell changes. Returns true if e was added or changed cells.
func (s *SpatialIndex) Update(e ecs.Entity, pos components.Position) bool {
	c := s.CellOf(pos)
	sl, ok := s.where[e]
	if ok && sl.cell == c {
		return false
	}
	if ok {
		s.Remove(e)
	}
	s.add(e, c)
	return true
}

// Has reports whether e is indexed.
func (s *SpatialIndex) Has(e ecs.Entity) bool {
	_, ok := s.where[e]
	return ok
}

// CellOfEntity returns the cell e is filed under.
func (s *SpatialIndex) CellOfEntity(e ecs.Entity) (Cell, bool) {
	sl, ok := s.where[e]
	return sl.cell, ok
}

// QueryRadius appends every entity in the cells covered by a radius query
// around center and returns the extended slice. The cell radius is
// ceil(radius / cellSize), so the result is a superset of the entities within
// the Euclidean radius; use Within for exact filtering.
func (s *SpatialIndex) QueryRadius(dst []ecs.Entity, center components.Position, radius int32) []ecs.Entity {
	return s.QueryRadiusFiltered(dst, center, radius, nil)
}

// QueryRadiusFiltered is QueryRadius with a per-entity predicate.
func (s *SpatialIndex) QueryRadiusFiltered(dst []ecs.Entity, center components.Position, radius int32, keep func(ecs.Entity) bool) []ecs.Entity {
	if radius < 0 {
		return dst
	}
	cr := (radius + s.cellSize - 1) / s.cellSize
	cc := s.CellOf(center)

	for cy := cc.Y - cr; cy <= cc.Y+cr; cy++ {
		for cx := cc.X - cr; cx <= cc.X+cr; cx++ {
			for _, e := range s.cells[Cell{X: cx, Y: cy}] {
				if keep == nil || keep(e) {
					dst = append(dst, e)
				}
			}
		}
	}
	return dst
}

// EntitiesInCell returns the members of one cell. The slice is owned by the
// index and is only valid until the next mutation.
func (s *SpatialIndex) EntitiesInCell(c Cell) []ecs.Entity {
	return s.cells[c]
}

// Within reports whether b lies within the Euclidean radius of a.
func Within(a, b components.Position, radius int32) bool {
	return a.DistSq(b) <= int64(radius)*int64(radius)
}

// CellCount returns the number of occupied cells.
func (s *SpatialIndex) CellCount() int {
	return len(s.cells)
}

// Len returns the number of indexed entities.
func (s *SpatialIndex) Len() int {
	return len(s.where)
}

// Clear removes everything.
func (s *SpatialIndex) Clear() {
	clear(s.cells)
	clear(s.where)
}
