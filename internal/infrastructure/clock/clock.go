package clock

import (
	"time"

	"gasdock/internal/ports"
)

type System struct{}

var _ ports.Clock = System{}

func New() System { return System{} }

func (System) Now() time.Time { return time.Now().UTC() }
