// Package setup provisions a Python development environment for a project.
//
// The sequence mirrors a classic bootstrap script and is strictly linear and
// fail-fast:
//
//  1. Find an interpreter on PATH (python3, then python).
//  2. Check its version against a minimum (3.7 by default).
//  3. Create the virtual environment directory, or reuse it if present.
//  4. Upgrade pip inside the virtual environment.
//  5. Install the project in editable mode.
//  6. Optionally install developer tooling, after asking.
//  7. Print usage instructions.
//
// A missing or too-old interpreter fails with exit code 1. Any child process
// that fails stops the sequence and its exit status becomes the CLI's exit
// status. There are no retries.
//
// External commands go through the Runner interface and PATH lookups through
// a LookPath function, so the whole sequence can be tested without Python.
package setup
