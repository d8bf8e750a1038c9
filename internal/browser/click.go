package browser

import (
	"math"
	"math/rand"

	"github.com/playwright-community/playwright-go"
)

// clicker is the pointer capability: dispatch a click on a page position or
// inside an element. Two implementations exist, direct dispatch and a
// human-like segmented path; the controller picks one at construction.
type clicker interface {
	ClickPage(page playwright.Page, x, y float64) error
	ClickLocator(loc playwright.Locator, pos *playwright.Position) error
}

// directClicker dispatches clicks without pointer travel.
type directClicker struct{}

func (directClicker) ClickPage(page playwright.Page, x, y float64) error {
	return page.Mouse().Click(x, y)
}

func (directClicker) ClickLocator(loc playwright.Locator, pos *playwright.Position) error {
	return loc.Click(playwright.LocatorClickOptions{
		Force:    playwright.Bool(true),
		Position: pos,
	})
}

// humanClicker moves the pointer along a segmented path with slight
// waypoint noise before clicking, approximating human mouse travel.
type humanClicker struct{}

func (humanClicker) ClickPage(page playwright.Page, x, y float64) error {
	if err := travel(page, x, y); err != nil {
		return err
	}
	return page.Mouse().Click(x, y)
}

func (h humanClicker) ClickLocator(loc playwright.Locator, pos *playwright.Position) error {
	box, err := loc.BoundingBox()
	if err != nil || box == nil {
		// No geometry to travel to; fall back to direct dispatch.
		return directClicker{}.ClickLocator(loc, pos)
	}

	x, y := box.X+box.Width/2, box.Y+box.Height/2
	if pos != nil {
		x, y = box.X+pos.X, box.Y+pos.Y
	}

	page, err := loc.Page()
	if err != nil {
		return directClicker{}.ClickLocator(loc, pos)
	}
	if err := travel(page, x, y); err != nil {
		return err
	}
	return page.Mouse().Click(x, y)
}

// travel walks the pointer to the target through noisy intermediate
// waypoints, each rendered with several interpolation steps.
func travel(page playwright.Page, x, y float64) error {
	for _, wp := range waypoints(x, y, 3) {
		if err := page.Mouse().Move(wp.X, wp.Y, playwright.MouseMoveOptions{
			Steps: playwright.Int(8 + rand.Intn(8)),
		}); err != nil {
			return err
		}
	}
	return page.Mouse().Move(x, y, playwright.MouseMoveOptions{
		Steps: playwright.Int(6),
	})
}

// waypoints produces n points approaching (x, y), each offset from the
// straight-line approach by bounded noise proportional to the remaining
// distance.
func waypoints(x, y float64, n int) []playwright.Position {
	pts := make([]playwright.Position, 0, n)
	for i := 1; i <= n; i++ {
		frac := float64(i) / float64(n+1)
		remaining := 1 - frac
		noise := math.Min(40, 120*remaining)
		pts = append(pts, playwright.Position{
			X: x*frac + (rand.Float64()-0.5)*noise,
			Y: y*frac + (rand.Float64()-0.5)*noise,
		})
	}
	return pts
}
