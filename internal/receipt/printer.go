package receipt

// Connection is the printer connection setting, a closed set of kinds with
// explicit fields instead of a loosely typed bag.
type Connection interface {
	connection()
}

// USBConnection identifies a locally attached ticket printer.
type USBConnection struct {
	VendorID  string `json:"vendor_id"`
	ProductID string `json:"product_id"`
}

// NetworkConnection identifies a printer reachable over the network.
type NetworkConnection struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// NoPrinter disables physical printing; receipts are still formatted.
type NoPrinter struct{}

func (USBConnection) connection()     {}
func (NetworkConnection) connection() {}
func (NoPrinter) connection()         {}

// PrinterConfig holds the device settings for the receipt collaborator.
type PrinterConfig struct {
	Conn       Connection
	PaperWidth int
	OpenDrawer bool
}

// DrawerKickCommand is the ESC/POS pulse sequence that opens the cash
// drawer. The caller sends it to the device; this package never performs
// the physical I/O.
func DrawerKickCommand() []byte {
	return []byte{0x1B, 0x70, 0x00, 0x19, 0xFA}
}
