package factdf

import "fmt"

// Column interface defines the methods the columns
type Column interface {
	CC

	Copy() Column
	String() string
}

// CC interface defines the methods of ColCore
type CC interface {
	Core() *ColCore
	DataType() DataTypes
	Dialect() *Dialect
	Name() string
}

// *********** ColCore ***********

// ColCore implements the nucleus of the Column interface.
type ColCore struct {
	name string
	dt   DataTypes

	dlct *Dialect
}

func NewColCore(dt DataTypes, ops ...ColOpt) (*ColCore, error) {
	if dt == DTunknown {
		return nil, fmt.Errorf("unknown data type in NewColCore")
	}

	c := &ColCore{dt: dt}

	for _, op := range ops {
		if e := op(c); e != nil {
			return nil, e
		}
	}

	return c, nil
}

// *********** Setters ***********

type ColOpt func(c CC) error

func ColDataType(dt DataTypes) ColOpt {
	return func(c CC) error {
		if c == nil {
			return fmt.Errorf("nil column to ColDataType")
		}

		c.Core().dt = dt

		return nil
	}
}

func ColDialect(dlct *Dialect) ColOpt {
	return func(c CC) error {
		if c == nil {
			return fmt.Errorf("nil column to ColDialect")
		}

		c.Core().dlct = dlct
		return nil
	}
}

func ColName(name string) ColOpt {
	return func(c CC) error {
		if c == nil {
			return fmt.Errorf("nil column to ColName")
		}

		if c.Name() != "" {
			return fmt.Errorf("column already named %s", c.Name())
		}

		if e := validName(name, false); e != nil {
			return e
		}

		c.Core().name = name

		return nil
	}
}

// *********** Methods ***********

func (c *ColCore) Copy() *ColCore {
	return &ColCore{name: c.name, dt: c.dt, dlct: c.dlct}
}

// Core returns itself. The method is needed so the column types that embed ColCore satisfy CC.
func (c *ColCore) Core() *ColCore {
	return c
}

func (c *ColCore) DataType() DataTypes {
	return c.dt
}

func (c *ColCore) Dialect() *Dialect { return c.dlct }

func (c *ColCore) Name() string {
	return c.name
}
