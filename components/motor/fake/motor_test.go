package fake

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/sysid/components/motor"
	"go.viam.com/sysid/config"
	"go.viam.com/sysid/logging"
	"go.viam.com/sysid/registry"
)

func TestMotorPower(t *testing.T) {
	ctx := context.Background()
	m := NewMotor("m", logging.NewTestLogger(t))

	on, pct, err := m.IsPowered(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, on, test.ShouldBeFalse)
	test.That(t, pct, test.ShouldEqual, 0)

	test.That(t, m.SetPower(ctx, -0.5, nil), test.ShouldBeNil)
	on, pct, err = m.IsPowered(ctx, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, on, test.ShouldBeTrue)
	test.That(t, pct, test.ShouldEqual, -0.5)
	test.That(t, m.Direction(), test.ShouldEqual, -1)
	test.That(t, m.PowerPct(), test.ShouldEqual, -0.5)

	m.DirFlip = true
	test.That(t, m.PowerPct(), test.ShouldEqual, 0.5)
	// reading the flipped power leaves the commanded power alone
	test.That(t, m.PowerPct(), test.ShouldEqual, 0.5)

	test.That(t, m.Stop(ctx, nil), test.ShouldBeNil)
	test.That(t, m.Direction(), test.ShouldEqual, 0)
	test.That(t, m.SetPowerCalls(), test.ShouldEqual, 2)
}

func TestMotorRegistration(t *testing.T) {
	reg := registry.ComponentLookup(motor.SubtypeName, Model)
	test.That(t, reg, test.ShouldNotBeNil)

	attrs, err := reg.AttributeMapConverter(config.AttributeMap{"direction_flip": true})
	test.That(t, err, test.ShouldBeNil)

	built, err := reg.Constructor(context.Background(), registry.Dependencies{},
		config.Component{Name: "m", Type: motor.SubtypeName, Model: Model, ConvertedAttributes: attrs},
		logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	m, ok := built.(*Motor)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, m.DirFlip, test.ShouldBeTrue)

	deps := registry.Dependencies{"m": built}
	got, err := motor.FromDependencies(deps, "m")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldEqual, m)
}
