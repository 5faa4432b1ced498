package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/tetratelabs/hfiemu/internal/reservation"
)

var (
	_ pflag.Value = (*levelValue)(nil)
	_ pflag.Value = (*stateValue)(nil)
)

// levelValue is a logrus level flag.
type levelValue struct {
	level *logrus.Level
}

func (v *levelValue) String() string {
	if v.level == nil {
		return ""
	}
	return v.level.String()
}

func (v *levelValue) Set(s string) error {
	l, err := logrus.ParseLevel(s)
	if err != nil {
		return err
	}
	*v.level = l
	return nil
}

func (v *levelValue) Type() string { return "level" }

// stateValue is a reservation state flag.
type stateValue struct {
	state *reservation.State
}

func (v *stateValue) String() string {
	if v.state == nil {
		return ""
	}
	return v.state.String()
}

func (v *stateValue) Set(s string) error {
	for _, st := range []reservation.State{reservation.Unreserved, reservation.Reserved, reservation.Released} {
		if strings.EqualFold(s, st.String()) {
			*v.state = st
			return nil
		}
	}
	return fmt.Errorf("invalid state %q: want unreserved, reserved or released", s)
}

func (v *stateValue) Type() string { return "state" }
