package action

import (
	"context"
	"fmt"

	"github.com/go-vgo/robotgo"
)

// RobotgoExecutor injects synthetic mouse and keyboard input through
// robotgo. All coordinates are absolute screen coordinates by the time an
// invocation reaches it.
type RobotgoExecutor struct{}

func NewRobotgoExecutor() *RobotgoExecutor { return &RobotgoExecutor{} }

func (e *RobotgoExecutor) Execute(ctx context.Context, inv Invocation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch inv.Kind {
	case KindClick:
		robotgo.Move(inv.X, inv.Y)
		button := inv.Button
		if button == "" {
			button = "left"
		}
		clicks := inv.Clicks
		if clicks <= 0 {
			clicks = 1
		}
		for i := 0; i < clicks; i++ {
			robotgo.Click(button, false)
		}
	case KindDoubleClick:
		robotgo.Move(inv.X, inv.Y)
		button := inv.Button
		if button == "" {
			button = "left"
		}
		robotgo.Click(button, true)
	case KindRightClick:
		robotgo.Move(inv.X, inv.Y)
		robotgo.Click("right", false)
	case KindMove:
		robotgo.MoveSmooth(inv.X, inv.Y)
	case KindDrag:
		robotgo.Move(inv.X, inv.Y)
		robotgo.DragSmooth(inv.EndX, inv.EndY)
	case KindType:
		robotgo.TypeStr(inv.Text)
	case KindPressKey:
		if err := robotgo.KeyTap(inv.Key); err != nil {
			return fmt.Errorf("key tap %q: %w", inv.Key, err)
		}
	default:
		return fmt.Errorf("input executor cannot handle kind %q", inv.Kind)
	}
	return nil
}
