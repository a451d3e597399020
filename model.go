package main

import (
	"fmt"
	"sort"
)

// Port pairs a chip-select line with the slot letter printed on the carrier.
// Pins use BCM numbering.
type Port struct {
	ChipSelectPin int  `json:"chip_select_pin"`
	Name          byte `json:"port_name"`
}

func (p Port) String() string {
	return fmt.Sprintf("%c:GPIO%d", p.Name, p.ChipSelectPin)
}

// Board describes one carrier variant.  Every chip-select signal wired on the
// board has to be listed, even for empty slots, so that all of them can be
// driven high and the ports stay separated on the shared SPI bus.
type Board struct {
	ID               string `json:"id"`
	DisplayName      string `json:"display_name"`
	DeviceIdentifier int    `json:"device_identifier"`
	Description      string `json:"description"`
	ports            []Port
}

// Ports returns a copy of the board's port table.
func (b Board) Ports() []Port {
	out := make([]Port, len(b.ports))
	copy(out, b.ports)
	return out
}

// Validate checks the board's port table.
func (b Board) Validate() error {
	if err := ValidatePorts(b.ports); err != nil {
		return fmt.Errorf("board %s: %w", b.ID, err)
	}
	return nil
}

var boards = map[string]Board{
	"hat": {
		ID:               "hat",
		DisplayName:      "HAT",
		DeviceIdentifier: 111,
		Description:      "HAT for Raspberry Pi with 8 Bricklets ports",
		ports: []Port{
			{ChipSelectPin: 23, Name: 'A'},
			{ChipSelectPin: 22, Name: 'B'},
			{ChipSelectPin: 25, Name: 'C'},
			{ChipSelectPin: 26, Name: 'D'},
			{ChipSelectPin: 27, Name: 'E'},
			{ChipSelectPin: 24, Name: 'F'},
			{ChipSelectPin: 7, Name: 'G'},
			{ChipSelectPin: 6, Name: 'H'},
			{ChipSelectPin: 5, Name: 'I'}, // HAT co-processor
		},
	},
	"hat-zero": {
		ID:               "hat-zero",
		DisplayName:      "HAT Zero",
		DeviceIdentifier: 112,
		Description:      "HAT for Raspberry Pi Zero with 4 Bricklets ports",
		ports: []Port{
			{ChipSelectPin: 27, Name: 'A'},
			{ChipSelectPin: 23, Name: 'B'},
			{ChipSelectPin: 24, Name: 'C'},
			{ChipSelectPin: 22, Name: 'D'},
			{ChipSelectPin: 25, Name: 'E'}, // HAT Zero co-processor
		},
	},
}

// LookupBoard returns the built-in board with the given ID.
func LookupBoard(id string) (Board, bool) {
	b, ok := boards[id]
	return b, ok
}

// BoardIDs returns the IDs of all built-in boards in sorted order.
func BoardIDs() []string {
	ids := make([]string, 0, len(boards))
	for id := range boards {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ValidatePorts rejects tables that can not be wired: empty tables, negative
// pins, names outside 'A'..'Z' and duplicated pins or names.  Duplicate pins
// are reported as DuplicatePin, everything else as InvalidParameter.
func ValidatePorts(ports []Port) error {
	if len(ports) == 0 {
		return fmt.Errorf("empty port table: %w", InvalidParameter)
	}
	pins := make(map[int]byte, len(ports))
	names := make(map[byte]bool, len(ports))
	for _, p := range ports {
		if p.ChipSelectPin < 0 {
			return fmt.Errorf("port %c: negative chip select pin %d: %w", p.Name, p.ChipSelectPin, InvalidParameter)
		}
		if p.Name < 'A' || p.Name > 'Z' {
			return fmt.Errorf("invalid port name %q: %w", p.Name, InvalidParameter)
		}
		if other, dup := pins[p.ChipSelectPin]; dup {
			return fmt.Errorf("ports %c and %c share chip select pin %d: %w", other, p.Name, p.ChipSelectPin, DuplicatePin)
		}
		if names[p.Name] {
			return fmt.Errorf("port %c listed twice: %w", p.Name, InvalidParameter)
		}
		pins[p.ChipSelectPin] = p.Name
		names[p.Name] = true
	}
	return nil
}
