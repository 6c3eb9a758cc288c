// Package disk emulates drives at the BIOS INT 13h level: an
// image-backed (or raw-device) block store with CHS addressing,
// sector-granular reads and writes through emulated memory, and the
// INT 13h dispatch itself.
package disk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go86/pkg/cpu"
	"go86/pkg/memory"
)

// SectorSize is fixed for every supported medium.
const SectorSize = 512

// ErrBadSector covers a zero sector number and any CHS triple landing
// past the end of the medium.
var ErrBadSector = errors.New("disk: sector out of range")

// INT 13h status codes reported in AH.
const (
	statusOK          = 0x00
	statusBadCommand  = 0x01
	statusMediaError  = 0x0C
	statusNoMedia     = 0xAA
	lastStatusAddress = 0x474 // BIOS data area mirror for fixed disks
)

// Backing is the host block store behind a drive: an image file, or
// whatever a host installs through OpenRaw.
type Backing interface {
	io.ReaderAt
	io.WriterAt
	io.Closer
}

// Geometry is the CHS shape of a drive.
type Geometry struct {
	Cyls, Heads, Sects uint32
}

// OpenRaw opens a host raw device (path prefix `\\`) and reports its
// geometry and byte size. The default refuses; hosts with sector-level
// device access install their own.
var OpenRaw = func(path string) (Backing, Geometry, uint32, error) {
	return nil, Geometry{}, 0, fmt.Errorf("disk: raw device access not supported on this host (%q)", path)
}

type drive struct {
	backing  Backing
	size     uint32
	geo      Geometry
	inserted bool
}

// Service owns the drive table and answers INT 13h. Drive numbers below
// 0x80 are floppies, 0x80 and up are fixed disks.
type Service struct {
	mem    *memory.Bus
	log    *slog.Logger
	drives [256]drive

	lastAH [256]byte
	lastCF [256]byte

	bootDrive byte
	hdCount   byte
}

func New(mem *memory.Bus, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{mem: mem, log: logger}
}

// Insert attaches a medium to a drive slot, replacing (and closing) any
// medium already there. A path starting with `\\` selects raw-device
// mode; anything else is opened as a read-write image file.
func (s *Service) Insert(drivenum byte, path string) error {
	if strings.HasPrefix(path, `\\`) {
		return s.insertRaw(drivenum, path)
	}
	return s.insertImage(drivenum, path)
}

func (s *Service) insertImage(drivenum byte, path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("disk: insert %d: %w", drivenum, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("disk: insert %d: %w", drivenum, err)
	}
	size := uint32(st.Size())
	s.attach(drivenum, f, size, imageGeometry(drivenum, size))
	s.log.Debug("disk inserted",
		slog.Int("drive", int(drivenum)),
		slog.String("path", path),
		slog.Int("size", int(size)))
	return nil
}

func (s *Service) insertRaw(drivenum byte, path string) error {
	b, geo, size, err := OpenRaw(path)
	if err != nil {
		return err
	}
	s.attach(drivenum, b, size, geo)
	return nil
}

func (s *Service) attach(drivenum byte, b Backing, size uint32, geo Geometry) {
	d := &s.drives[drivenum]
	if d.inserted && d.backing != nil {
		d.backing.Close()
	} else if drivenum >= 0x80 {
		s.hdCount++
	}
	d.backing = b
	d.size = size
	d.geo = geo
	d.inserted = true
}

// imageGeometry derives CHS from the image size: fixed disks always use
// 63 sectors and 16 heads; floppies match the standard PC formats.
func imageGeometry(drivenum byte, size uint32) Geometry {
	if drivenum >= 0x80 {
		return Geometry{
			Cyls:  size / (63 * 16 * SectorSize),
			Heads: 16,
			Sects: 63,
		}
	}
	g := Geometry{Cyls: 80, Heads: 2, Sects: 18}
	if size <= 1228800 {
		g.Sects = 15
	}
	if size <= 737280 {
		g.Sects = 9
	}
	if size <= 368640 {
		g.Cyls, g.Sects = 40, 9
	}
	if size <= 163840 {
		g.Cyls, g.Sects, g.Heads = 40, 8, 1
	}
	return g
}

// Eject detaches and closes a drive's medium.
func (s *Service) Eject(drivenum byte) {
	d := &s.drives[drivenum]
	if !d.inserted {
		return
	}
	if d.backing != nil {
		d.backing.Close()
		d.backing = nil
	}
	d.inserted = false
	if drivenum >= 0x80 {
		s.hdCount--
	}
}

// Close releases every attached medium.
func (s *Service) Close() {
	for i := range s.drives {
		s.Eject(byte(i))
	}
}

// Inserted reports whether a drive holds a medium.
func (s *Service) Inserted(drivenum byte) bool {
	return s.drives[drivenum].inserted
}

// Geometry returns the CHS shape of an inserted drive.
func (s *Service) Geometry(drivenum byte) (Geometry, bool) {
	d := &s.drives[drivenum]
	return d.geo, d.inserted
}

// SetBootDrive selects the drive Bootstrap reads sector 1 from. 0xFF
// means ROM BASIC instead.
func (s *Service) SetBootDrive(drivenum byte) {
	s.bootDrive = drivenum
}

// lba converts a CHS triple to a logical block address. Sector numbers
// are 1-based.
func (d *drive) lba(cyl, sect, head uint16) (uint32, error) {
	if sect == 0 {
		return 0, ErrBadSector
	}
	lba := (uint32(cyl)*d.geo.Heads+uint32(head))*d.geo.Sects + uint32(sect) - 1
	if lba*SectorSize > d.size {
		return 0, ErrBadSector
	}
	return lba, nil
}

// readSectors transfers count sectors into guest memory at dstseg:dstoff.
// Bytes go through the memory bus, not the RAM array, so a guest cannot
// load disk data over ROM. Returns sectors transferred and the AH
// status.
func (s *Service) readSectors(drivenum byte, dstseg, dstoff, cyl, sect, head, count uint16) (byte, byte) {
	d := &s.drives[drivenum]
	if !d.inserted {
		return 0, statusBadCommand
	}
	lba, err := d.lba(cyl, sect, head)
	if err != nil {
		return 0, statusBadCommand
	}

	dst := uint32(dstseg)<<4 + uint32(dstoff)
	var buf [SectorSize]byte
	for n := uint16(0); n < count; n++ {
		off := int64(lba+uint32(n)) * SectorSize
		if _, err := d.backing.ReadAt(buf[:], off); err != nil {
			s.log.Warn("disk read failed",
				slog.Int("drive", int(drivenum)),
				slog.Int("lba", int(lba)+int(n)),
				slog.String("error", err.Error()))
			return byte(n), statusMediaError
		}
		for _, b := range buf {
			s.mem.Write8(dst, b)
			dst++
		}
	}
	return byte(count), statusOK
}

// writeSectors is the symmetric transfer out of guest memory.
func (s *Service) writeSectors(drivenum byte, srcseg, srcoff, cyl, sect, head, count uint16) (byte, byte) {
	d := &s.drives[drivenum]
	if !d.inserted {
		return 0, statusBadCommand
	}
	lba, err := d.lba(cyl, sect, head)
	if err != nil {
		return 0, statusBadCommand
	}

	src := uint32(srcseg)<<4 + uint32(srcoff)
	var buf [SectorSize]byte
	for n := uint16(0); n < count; n++ {
		for i := range buf {
			buf[i] = s.mem.Read8(src)
			src++
		}
		off := int64(lba+uint32(n)) * SectorSize
		if _, err := d.backing.WriteAt(buf[:], off); err != nil {
			s.log.Warn("disk write failed",
				slog.Int("drive", int(drivenum)),
				slog.Int("lba", int(lba)+int(n)),
				slog.String("error", err.Error()))
			return byte(n), statusMediaError
		}
	}
	return byte(count), statusOK
}

// Int13 dispatches the BIOS disk service. Register conventions: AH is
// the function, DL the drive, CH/CL/DH the CHS address (the top two
// bits of CL extend the cylinder), ES:BX the transfer buffer, AL the
// sector count.
func (s *Service) Int13(c *cpu.CPU) bool {
	dl := c.DL()
	switch c.AH() {
	case 0x00: // reset: nothing to spin down in an emulator
		c.SetAH(statusOK)
		c.CF = false
	case 0x01: // last status
		c.SetAH(s.lastAH[dl])
		c.CF = s.lastCF[dl] != 0
		return true
	case 0x02, 0x03: // read / write sectors
		cyl := uint16(c.CH()) | uint16(c.CL()>>6)<<8
		sect := uint16(c.CL() & 0x3F)
		head := uint16(c.DH())
		count := uint16(c.AL())

		var n, status byte
		if c.AH() == 0x02 {
			n, status = s.readSectors(dl, c.ES, c.BX, cyl, sect, head, count)
		} else {
			n, status = s.writeSectors(dl, c.ES, c.BX, cyl, sect, head, count)
		}
		c.SetAL(n)
		c.SetAH(status)
		c.CF = status != statusOK
	case 0x04, 0x05: // verify / format track: report success
		c.SetAH(statusOK)
		c.CF = false
	case 0x08: // drive parameters
		d := &s.drives[dl]
		if !d.inserted {
			c.SetAH(statusNoMedia)
			c.CF = true
			break
		}
		c.SetAH(statusOK)
		c.CF = false
		c.SetCH(byte(d.geo.Cyls - 1))
		c.SetCL(byte(d.geo.Sects&0x3F) | byte(d.geo.Cyls/256)<<6)
		c.SetDH(byte(d.geo.Heads - 1))
		if dl < 0x80 {
			c.SetBL(4)
			c.SetDL(2)
		} else {
			c.SetDL(s.hdCount)
		}
	default:
		c.CF = true
	}

	s.lastAH[dl] = c.AH()
	if c.CF {
		s.lastCF[dl] = 1
	} else {
		s.lastCF[dl] = 0
	}
	if dl&0x80 != 0 {
		// fixed-disk status mirror in the BIOS data area
		s.mem.Write8(lastStatusAddress, c.AH())
	}
	return true
}

// Bootstrap loads sector 1 of the boot drive to 07C0:0000 and vectors
// execution there; boot drive 0xFF starts ROM BASIC instead.
func (s *Service) Bootstrap(c *cpu.CPU) bool {
	if s.bootDrive == 0xFF {
		c.CS = 0xF600
		c.IP = 0
		return true
	}
	c.SetDL(s.bootDrive)
	s.readSectors(s.bootDrive, 0x07C0, 0x0000, 0, 1, 0, 1)
	c.CS = 0x0000
	c.IP = 0x7C00
	return true
}
