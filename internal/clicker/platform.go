package clicker

import (
	"errors"
	"fmt"

	"github.com/tturner/smiteclick/internal/settings"
)

// ErrWindowNotFound means no window currently matches the target title. The
// engine treats it as a soft pause, never as a failure.
var ErrWindowNotFound = errors.New("window not found")

// Pointer drives the system cursor.
type Pointer interface {
	MoveCursor(x, y int) error
	Click(button settings.MouseButton, clickType settings.ClickType) error
	CurrentPosition() (x, y int, err error)
}

// WindowFinder resolves top-level windows by title.
type WindowFinder interface {
	FindWindowByTitle(title string) (Rect, error)
	ListWindowTitles() ([]string, error)
}

// Rect is a window rectangle in screen coordinates. Left and Top are
// inclusive, the right and bottom edges are exclusive.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Contains reports whether (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x < r.Left+r.Width &&
		y >= r.Top && y < r.Top+r.Height
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.Left, r.Top)
}
