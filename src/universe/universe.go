package universe

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

//Cell is the state of one grid position, Dead (0) or Alive (1)
//the values are summed directly when counting neighbours
type Cell uint8

const (
	Dead  Cell = 0
	Alive Cell = 1
)

const (
	deadGlyph  = '◻'
	aliveGlyph = '◼'
)

//Rune returns the glyph used to render the cell
func (c Cell) Rune() rune {
	if c == Dead {
		return deadGlyph
	}
	return aliveGlyph
}

var (
	ErrInvalidDimensions = errors.New("universe dimensions must be positive")
	ErrCellCount         = errors.New("cell count does not match dimensions")
	ErrInvalidCell       = errors.New("cell value is neither dead nor alive")
)

//Universe is the toroidal Game of Life grid
//it is not safe for concurrent use, the Runner serializes access to it
type Universe struct {
	width      int
	height     int
	generation int
	cells      []Cell
}

//New creates the universe seeded with random data
func New(width int, height int) (*Universe, error) {
	return NewWithRand(width, height, newRand(0))
}

//NewWithRand creates the universe seeded from rng
//each cell is an independent coin flip: alive when the drawn value is even
func NewWithRand(width int, height int, rng *rand.Rand) (*Universe, error) {
	u, err := newUniverse(width, height)
	if err != nil {
		return nil, err
	}
	for i := range u.cells {
		if rng.IntN(100)%2 == 0 {
			u.cells[i] = Alive
		}
	}
	return u, nil
}

//FromCells creates the universe from an explicit row-major buffer
//the buffer is copied
func FromCells(width int, height int, cells []Cell) (*Universe, error) {
	u, err := newUniverse(width, height)
	if err != nil {
		return nil, err
	}
	if len(cells) != len(u.cells) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrCellCount, len(cells), len(u.cells))
	}
	for i, c := range cells {
		if c != Dead && c != Alive {
			return nil, fmt.Errorf("%w: %d at index %d", ErrInvalidCell, c, i)
		}
	}
	copy(u.cells, cells)
	return u, nil
}

//FromCoordinates creates the dead universe and brings to life the cells at [col,row] coordinates
//coordinates outside the area are skipped
func FromCoordinates(width int, height int, coords [][]int) (*Universe, error) {
	u, err := newUniverse(width, height)
	if err != nil {
		return nil, err
	}
	for _, v := range coords {
		if len(v) < 2 || v[0] < 0 || v[1] < 0 || v[0] >= width || v[1] >= height {
			continue
		}
		u.cells[u.index(v[1], v[0])] = Alive
	}
	return u, nil
}

func newUniverse(width int, height int) (*Universe, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %d x %d", ErrInvalidDimensions, width, height)
	}
	return &Universe{
		width:  width,
		height: height,
		cells:  make([]Cell, width*height),
	}, nil
}

//newRand returns the PCG generator, seed 0 means seeding from the clock
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, 0))
}

//Tick calculates the next generation and returns its number
//all cells are calculated from the current buffer into the new one, then the buffers are swapped
func (u *Universe) Tick() int {
	next := make([]Cell, len(u.cells))
	for row := 0; row < u.height; row++ {
		for col := 0; col < u.width; col++ {
			idx := u.index(row, col)
			next[idx] = nextState(u.cells[idx], u.liveNeighbourCount(row, col))
		}
	}
	u.cells = next
	u.generation++
	return u.generation
}

//nextState applies the rules to the cell with n live neighbours
func nextState(cell Cell, n int) Cell {
	switch {
	case cell == Alive && n < 2:
		//underpopulation
		return Dead
	case cell == Alive && (n == 2 || n == 3):
		return Alive
	case cell == Alive && n > 3:
		//overpopulation
		return Dead
	case cell == Dead && n == 3:
		//reproduction
		return Alive
	}
	return cell
}

//liveNeighbourCount sums the 8 wrapped neighbours of the cell
//height-1 and width-1 offsets stand for one step back
func (u *Universe) liveNeighbourCount(row int, col int) int {
	count := 0
	for _, dr := range [3]int{u.height - 1, 0, 1} {
		for _, dc := range [3]int{u.width - 1, 0, 1} {
			//skip my position
			if dr == 0 && dc == 0 {
				continue
			}
			r := (row + dr) % u.height
			c := (col + dc) % u.width
			count += int(u.cells[u.index(r, c)])
		}
	}
	return count
}

func (u *Universe) index(row int, col int) int {
	return row*u.width + col
}

//Render returns the grid as text, one line per row
func (u *Universe) Render() string {
	var b strings.Builder
	b.Grow((u.width*3 + 1) * u.height)
	for row := 0; row < u.height; row++ {
		for _, c := range u.cells[row*u.width : (row+1)*u.width] {
			b.WriteRune(c.Rune())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (u *Universe) String() string {
	return u.Render()
}

func (u *Universe) Width() int { return u.width }

func (u *Universe) Height() int { return u.height }

func (u *Universe) Generation() int { return u.generation }

//Cells returns the copy of the row-major cell buffer
func (u *Universe) Cells() []Cell {
	c := make([]Cell, len(u.cells))
	copy(c, u.cells)
	return c
}

//Cell returns the cell at row, col; coordinates wrap around the torus
func (u *Universe) Cell(row int, col int) Cell {
	row = (row%u.height + u.height) % u.height
	col = (col%u.width + u.width) % u.width
	return u.cells[u.index(row, col)]
}

//LiveCells calculates the count of live cells
func (u *Universe) LiveCells() int {
	n := 0
	for _, c := range u.cells {
		n += int(c)
	}
	return n
}
