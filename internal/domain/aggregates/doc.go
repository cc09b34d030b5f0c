// Package aggregates declares the write boundaries of the training domain: the module
// graph and a learner's SCORM attempt. Each boundary commits atomically.
package aggregates
