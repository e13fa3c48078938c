////////////////////////////////////////////////////////////////////////////////
// Copyright © 2024 Trade Bridge SEZC                                         //
//                                                                            //
// Use of this source code is governed by a license that can be found in the  //
// LICENSE file.                                                              //
////////////////////////////////////////////////////////////////////////////////

package main

func main() {
	Execute()
}
