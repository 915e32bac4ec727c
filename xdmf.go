package main

import (
	"bufio"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type xdmfDoc struct {
	XMLName xml.Name   `xml:"Xdmf"`
	Version string     `xml:"Version,attr"`
	Domain  xdmfDomain `xml:"Domain"`
}

type xdmfDomain struct {
	Grids []*xdmfGrid `xml:"Grid"`
}

type xdmfGrid struct {
	Name           string          `xml:"Name,attr"`
	GridType       string          `xml:"GridType,attr"`
	CollectionType string          `xml:"CollectionType,attr,omitempty"`
	Time           *xdmfTime       `xml:"Time,omitempty"`
	Topology       *xdmfTopology   `xml:"Topology,omitempty"`
	Geometry       *xdmfGeometry   `xml:"Geometry,omitempty"`
	Attributes     []xdmfAttribute `xml:"Attribute"`
	Grids          []*xdmfGrid     `xml:"Grid"`
}

type xdmfTime struct {
	Value string `xml:"Value,attr"`
}

type xdmfTopology struct {
	TopologyType     string       `xml:"TopologyType,attr"`
	NumberOfElements int          `xml:"NumberOfElements,attr"`
	DataItem         xdmfDataItem `xml:"DataItem"`
}

type xdmfGeometry struct {
	GeometryType string       `xml:"GeometryType,attr"`
	DataItem     xdmfDataItem `xml:"DataItem"`
}

type xdmfAttribute struct {
	Name          string       `xml:"Name,attr"`
	AttributeType string       `xml:"AttributeType,attr"`
	Center        string       `xml:"Center,attr"`
	DataItem      xdmfDataItem `xml:"DataItem"`
}

type xdmfDataItem struct {
	Dimensions string `xml:"Dimensions,attr"`
	NumberType string `xml:"NumberType,attr"`
	Precision  int    `xml:"Precision,attr"`
	Format     string `xml:"Format,attr"`
	Endian     string `xml:"Endian,attr"`
	Seek       int64  `xml:"Seek,attr"`
	Path       string `xml:",chardata"`
}

// XDMFWriter stores a mesh and a time series of nodal fields as XDMF light data
// plus one little-endian binary heavy-data file. The heavy-data file stays open
// until Close; the light data is rewritten after every write so the artifact is
// readable at each step.
type XDMFWriter struct {
	path     string
	dataName string
	data     *os.File
	buf      *bufio.Writer
	offset   int64

	doc      xdmfDoc
	topology *xdmfTopology
	geometry *xdmfGeometry
	series   map[string]*xdmfGrid
}

// CreateXDMF truncates or creates path and its sibling ".bin" heavy-data file.
func CreateXDMF(path string) (*XDMFWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("xdmf: %w", err)
	}
	dataPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".bin"
	data, err := os.Create(dataPath)
	if err != nil {
		return nil, fmt.Errorf("xdmf: %w", err)
	}
	return &XDMFWriter{
		path:     path,
		dataName: filepath.Base(dataPath),
		data:     data,
		buf:      bufio.NewWriter(data),
		doc:      xdmfDoc{Version: "3.0"},
		series:   make(map[string]*xdmfGrid),
	}, nil
}

// WriteMesh records the mesh geometry and hexahedral topology.
func (w *XDMFWriter) WriteMesh(m *Mesh) error {
	if w.topology != nil {
		return fmt.Errorf("xdmf: mesh already written")
	}

	cells := make([]int32, 0, 8*m.NumCells())
	for _, cell := range m.Cells() {
		for _, v := range cell {
			cells = append(cells, int32(v))
		}
	}
	topo, err := w.appendData(cells, fmt.Sprintf("%d 8", m.NumCells()), "Int", 4)
	if err != nil {
		return err
	}

	coords := make([]float64, 0, 3*m.NumVertices())
	for _, x := range m.Vertices() {
		coords = append(coords, x[0], x[1], x[2])
	}
	geom, err := w.appendData(coords, fmt.Sprintf("%d 3", m.NumVertices()), "Float", 8)
	if err != nil {
		return err
	}

	w.topology = &xdmfTopology{TopologyType: "Hexahedron", NumberOfElements: m.NumCells(), DataItem: topo}
	w.geometry = &xdmfGeometry{GeometryType: "XYZ", DataItem: geom}
	w.doc.Domain.Grids = append(w.doc.Domain.Grids, &xdmfGrid{
		Name:     "mesh",
		GridType: "Uniform",
		Topology: w.topology,
		Geometry: w.geometry,
	})
	return w.writeIndex()
}

// WriteFunction appends the nodal field u as the step t of the series name,
// split into real_<name> and imag_<name> attributes.
func (w *XDMFWriter) WriteFunction(name string, u []complex128, t float64) error {
	if w.topology == nil {
		return fmt.Errorf("xdmf: write the mesh before %q", name)
	}

	re := make([]float64, len(u))
	im := make([]float64, len(u))
	for i, v := range u {
		re[i], im[i] = real(v), imag(v)
	}
	dims := strconv.Itoa(len(u))
	reItem, err := w.appendData(re, dims, "Float", 8)
	if err != nil {
		return err
	}
	imItem, err := w.appendData(im, dims, "Float", 8)
	if err != nil {
		return err
	}

	series, ok := w.series[name]
	if !ok {
		series = &xdmfGrid{Name: name, GridType: "Collection", CollectionType: "Temporal"}
		w.series[name] = series
		w.doc.Domain.Grids = append(w.doc.Domain.Grids, series)
	}
	series.Grids = append(series.Grids, &xdmfGrid{
		Name:     name,
		GridType: "Uniform",
		Time:     &xdmfTime{Value: strconv.FormatFloat(t, 'g', -1, 64)},
		Topology: w.topology,
		Geometry: w.geometry,
		Attributes: []xdmfAttribute{
			{Name: "real_" + name, AttributeType: "Scalar", Center: "Node", DataItem: reItem},
			{Name: "imag_" + name, AttributeType: "Scalar", Center: "Node", DataItem: imItem},
		},
	})
	return w.writeIndex()
}

func (w *XDMFWriter) appendData(data any, dims, numberType string, precision int) (xdmfDataItem, error) {
	item := xdmfDataItem{
		Dimensions: dims,
		NumberType: numberType,
		Precision:  precision,
		Format:     "Binary",
		Endian:     "Little",
		Seek:       w.offset,
		Path:       w.dataName,
	}
	if err := binary.Write(w.buf, binary.LittleEndian, data); err != nil {
		return item, fmt.Errorf("xdmf: write heavy data: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return item, fmt.Errorf("xdmf: write heavy data: %w", err)
	}
	w.offset += int64(binary.Size(data))
	return item, nil
}

func (w *XDMFWriter) writeIndex() error {
	out, err := xml.MarshalIndent(&w.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("xdmf: %w", err)
	}
	out = append([]byte(xml.Header), out...)
	out = append(out, '\n')
	if err := os.WriteFile(w.path, out, 0o644); err != nil {
		return fmt.Errorf("xdmf: %w", err)
	}
	return nil
}

// Close flushes the light data and releases the heavy-data file.
func (w *XDMFWriter) Close() error {
	indexErr := w.writeIndex()
	if err := w.data.Close(); err != nil {
		return fmt.Errorf("xdmf: %w", err)
	}
	return indexErr
}
