package main

// chipSelectMonitor is the example run by default.  Setup lists the port
// table; every loop iteration reads back the chip-select lines and reports a
// port whose line has been pulled low while the driver has it deselected.
// With every port deselected no bricklet may drive the bus, so a low line
// means a wiring fault or a second process using the same GPIO.
type chipSelectMonitor struct {
	logger    *EventLogger
	heartbeat uint64

	iter     uint64
	asserted map[byte]bool
}

func newChipSelectMonitor(logger *EventLogger, heartbeat int) *chipSelectMonitor {
	if logger == nil {
		logger = NewEventLogger("")
	}
	hb := uint64(0)
	if heartbeat > 0 {
		hb = uint64(heartbeat)
	}
	return &chipSelectMonitor{logger: logger, heartbeat: hb, asserted: make(map[byte]bool)}
}

func (m *chipSelectMonitor) Setup(hal *Context) {
	if hal == nil {
		m.logger.Log("monitor: no hal, chip select checks disabled")
		return
	}
	hal.Printf("Ports on %s backend:\n", hal.Backend())
	for _, p := range hal.Ports() {
		hal.Printf("  %c: chip select GPIO%d\n", p.Name, p.ChipSelectPin)
	}
}

func (m *chipSelectMonitor) Loop(hal *Context) {
	m.iter++
	if m.heartbeat > 0 && m.iter%m.heartbeat == 0 {
		m.logger.Debug("monitor: %d iterations", m.iter)
	}
	if hal == nil {
		return
	}
	for _, p := range hal.Ports() {
		high, code := hal.Deselected(p.Name)
		if code != OK {
			continue
		}
		switch {
		case !high && !m.asserted[p.Name]:
			m.asserted[p.Name] = true
			hal.Printf("Port %c: chip select GPIO%d pulled low\n", p.Name, p.ChipSelectPin)
			m.logger.Log("port %c: chip select GPIO%d pulled low", p.Name, p.ChipSelectPin)
		case high && m.asserted[p.Name]:
			delete(m.asserted, p.Name)
			hal.Printf("Port %c: chip select GPIO%d released\n", p.Name, p.ChipSelectPin)
			m.logger.Log("port %c: chip select GPIO%d released", p.Name, p.ChipSelectPin)
		}
	}
}
