/*
	Package voxfeat provides types, constants and functions that have no other dependencies
	and can be used by all packages within voxfeat: runtime data types, logging, serialization
	of array payloads, and the progress message channel used by long-running engines.
*/
package voxfeat
