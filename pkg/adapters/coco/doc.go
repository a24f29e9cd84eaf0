// Package coco adapts hosted conversational components (the CoCo exchange
// API) to ports.TurnProcessor.
package coco
