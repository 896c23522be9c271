package main

import (
	"fmt"
	"io"
)

// Output defines a uniform interface to write to some stream.
type Output interface {
	Print(text string) (int, error)
	Println(text string) (int, error)
	Printf(format string, args ...interface{}) (int, error)
	Printfln(format string, args ...interface{}) (int, error)
}

// PlainOutput is an Output that writes data as-is to the wrapped writer.
type PlainOutput struct {
	Device io.Writer
}

// Print writes text to this output stream.
func (o *PlainOutput) Print(text string) (int, error) {
	return o.Device.Write([]byte(text))
}

// Println writes text followed by a line break.
func (o *PlainOutput) Println(text string) (int, error) {
	n1, err := o.Device.Write([]byte(text))
	if err != nil {
		return n1, err
	}
	n2, err := o.Device.Write([]byte{'\n'})
	return n1 + n2, err
}

// Printf writes a formatted string to this output stream.
func (o *PlainOutput) Printf(format string, args ...interface{}) (int, error) {
	return o.Device.Write([]byte(fmt.Sprintf(format, args...)))
}

// Printfln writes a formatted string followed by a line break.
func (o *PlainOutput) Printfln(format string, args ...interface{}) (int, error) {
	return o.Device.Write([]byte(fmt.Sprintf(format+"\n", args...)))
}
